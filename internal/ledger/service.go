// Package ledger maintient la cohérence entre les comptes et leurs
// transactions. Les soldes ne sont jamais recalculés par agrégation : chaque
// écriture applique son delta via un incrément SQL atomique
// (balance = balance + ?), ce qui ferme la course read-modify-write entre
// deux créations concurrentes sur le même compte.
package ledger

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"vendora_back_end/internal/models"
)

var (
	ErrAccountNotFound     = errors.New("compte introuvable")
	ErrTransactionNotFound = errors.New("transaction introuvable")
	ErrInvalidAccountType  = errors.New("type de compte invalide")
	ErrInvalidType         = errors.New("type de transaction invalide")
	ErrInvalidAmount       = errors.New("montant invalide")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// TransactionInput porte les champs d'une création/mise à jour de transaction.
type TransactionInput struct {
	Type        models.TransactionType `json:"type"`
	Amount      float64                `json:"amount"`
	Description string                 `json:"description"`
	Date        time.Time              `json:"date"`
	CategoryID  uint                   `json:"categoryId"`
	AccountID   uint                   `json:"accountId"`
}

func (in TransactionInput) validate() error {
	if !models.ValidTransactionType(in.Type) {
		return ErrInvalidType
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return ErrInvalidAmount
	}
	if in.AccountID == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ===================== COMPTES =====================

func (s *Service) CreateAccount(userID, name string, accountType models.AccountType, balance float64) (*models.Account, error) {
	if name == "" {
		return nil, errors.New("le nom du compte est obligatoire")
	}
	if !models.ValidAccountType(accountType) {
		return nil, ErrInvalidAccountType
	}
	if math.IsNaN(balance) || math.IsInf(balance, 0) {
		return nil, ErrInvalidAmount
	}

	account := &models.Account{
		Name:    name,
		Type:    accountType,
		Balance: balance,
		UserID:  userID,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) GetAccounts(userID string) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Service) GetAccountByID(userID string, accountID uint) (*models.Account, error) {
	var account models.Account
	err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// AccountUpdate porte les champs modifiables d'un compte. Balance est le
// seul chemin d'édition directe du solde (corrections manuelles).
type AccountUpdate struct {
	Name    *string             `json:"name"`
	Type    *models.AccountType `json:"type"`
	Balance *float64            `json:"balance"`
}

func (s *Service) UpdateAccount(userID string, accountID uint, fields AccountUpdate) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Type != nil {
		if !models.ValidAccountType(*fields.Type) {
			return nil, ErrInvalidAccountType
		}
		updates["type"] = *fields.Type
	}
	if fields.Balance != nil {
		if math.IsNaN(*fields.Balance) || math.IsInf(*fields.Balance, 0) {
			return nil, ErrInvalidAmount
		}
		updates["balance"] = *fields.Balance
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := s.db.First(account, account.ID).Error; err != nil {
			return nil, err
		}
	}
	return account, nil
}

// DeleteAccount supprime atomiquement toutes les transactions du compte puis
// le compte lui-même. Pas de recalcul de solde : les deux disparaissent
// ensemble.
func (s *Service) DeleteAccount(userID string, accountID uint) error {
	if _, err := s.GetAccountByID(userID, accountID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Account{}, accountID).Error
	})
}

// ===================== TRANSACTIONS =====================

// applyBalanceDelta incrémente le solde côté moteur de stockage. C'est la
// seule primitive d'écriture de solde du package : deux appels concurrents
// ne peuvent pas se perdre mutuellement.
func applyBalanceDelta(tx *gorm.DB, accountID uint, delta float64) error {
	result := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateTransaction insère la transaction et applique son delta au solde du
// compte propriétaire dans une même transaction SQL.
func (s *Service) CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	// Le compte doit exister et appartenir à l'appelant
	if _, err := s.GetAccountByID(userID, in.AccountID); err != nil {
		return nil, err
	}

	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	transaction := &models.Transaction{
		Type:        in.Type,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date,
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return err
		}
		return applyBalanceDelta(tx, in.AccountID, transaction.SignedAmount())
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// GetTransactionByID charge une transaction en vérifiant que son compte
// appartient bien à l'appelant.
func (s *Service) GetTransactionByID(userID string, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.First(&transaction, transactionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if _, err := s.GetAccountByID(userID, transaction.AccountID); err != nil {
		// Compte d'un autre utilisateur : on masque l'existence de la ligne
		return nil, ErrTransactionNotFound
	}
	return &transaction, nil
}

// UpdateTransaction recalcule le delta entre l'ancienne et la nouvelle
// version. Si le compte cible change, l'ancien compte est re-crédité de
// l'effet inverse et le nouveau reçoit l'effet direct — les deux soldes
// restent cohérents.
func (s *Service) UpdateTransaction(userID string, transactionID uint, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	old, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	// Le compte cible (potentiellement différent) doit aussi appartenir à
	// l'appelant
	if _, err := s.GetAccountByID(userID, in.AccountID); err != nil {
		return nil, err
	}

	if in.Date.IsZero() {
		in.Date = old.Date
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"type":        in.Type,
			"amount":      in.Amount,
			"description": in.Description,
			"date":        in.Date,
			"category_id": in.CategoryID,
			"account_id":  in.AccountID,
		}
		if err := tx.Model(&models.Transaction{}).Where("id = ?", transactionID).Updates(updates).Error; err != nil {
			return err
		}

		reverse := -old.SignedAmount()
		apply := models.Transaction{Type: in.Type, Amount: in.Amount}.SignedAmount()

		if in.AccountID == old.AccountID {
			return applyBalanceDelta(tx, old.AccountID, reverse+apply)
		}
		if err := applyBalanceDelta(tx, old.AccountID, reverse); err != nil {
			return err
		}
		return applyBalanceDelta(tx, in.AccountID, apply)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction est l'inverse exact de CreateTransaction : suppression
// de la ligne et annulation de son effet sur le solde, atomiquement.
func (s *Service) DeleteTransaction(userID string, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Transaction{}, transactionID).Error; err != nil {
			return err
		}
		return applyBalanceDelta(tx, transaction.AccountID, -transaction.SignedAmount())
	})
}

// GetAccountTransactions liste les transactions d'un compte de l'appelant,
// les plus récentes d'abord.
func (s *Service) GetAccountTransactions(userID string, accountID uint) ([]models.Transaction, error) {
	if _, err := s.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}
	var transactions []models.Transaction
	if err := s.db.Where("account_id = ?", accountID).Order("date DESC").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
