package models

import "time"

// Types de comptes du grand livre (dashboard finances de l'admin).
type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeCredit   AccountType = "CREDIT"
	AccountTypeCash     AccountType = "CASH"
)

// ValidAccountType vérifie qu'un type appartient à l'énumération.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeCredit, AccountTypeCash:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

func ValidTransactionType(t TransactionType) bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Account est un compte du grand livre. L'invariant est :
// balance == somme signée des transactions (+ corrections directes via
// UpdateAccount, seul chemin d'édition directe du solde).
type Account struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	Name      string      `json:"name" gorm:"not null"`
	Type      AccountType `json:"type" gorm:"not null"`
	Balance   float64     `json:"balance" gorm:"not null;default:0"`
	UserID    string      `json:"user_id" gorm:"index;not null"`
	CreatedAt time.Time   `json:"created_at"`
}

// Transaction appartient à exactement un compte. Toute écriture
// (création/modification/suppression) déclenche la mise à jour compensatoire
// du solde du compte propriétaire, dans la même transaction SQL.
type Transaction struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Type        TransactionType `json:"type" gorm:"not null"`
	Amount      float64         `json:"amount" gorm:"not null"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CategoryID  uint            `json:"category_id"`
	AccountID   uint            `json:"account_id" gorm:"index;not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SignedAmount retourne la contribution de la transaction au solde :
// +amount pour INCOME, -amount pour EXPENSE.
func (t Transaction) SignedAmount() float64 {
	if t.Type == TransactionTypeIncome {
		return t.Amount
	}
	return -t.Amount
}
