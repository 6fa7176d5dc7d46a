// Package ledger expose le grand livre (comptes + transactions) en HTTP.
// Toute la logique de cohérence des soldes vit dans internal/ledger ; les
// handlers ne font que traduire JSON ↔ service, scopé à l'utilisateur courant.
package ledger

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vendora_back_end/internal/ledger"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return 0, false
	}
	return uint(id), true
}

// writeServiceError traduit les erreurs métier du service en statuts HTTP.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInvalidAccountType),
		errors.Is(err, ledger.ErrInvalidType),
		errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ Erreur grand livre: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}

//
// --- COMPTES ---
//

// 🟢 POST /api/ledger/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var input struct {
		Name    string             `json:"name" binding:"required"`
		Type    models.AccountType `json:"type" binding:"required"`
		Balance float64            `json:"balance"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	account, err := h.svc.CreateAccount(userID(c), input.Name, input.Type, input.Balance)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	log.Printf("✅ Compte créé: %s (%s)", account.Name, account.Type)
	c.JSON(http.StatusCreated, account)
}

// 🔵 GET /api/ledger/accounts
func (h *Handler) GetAccounts(c *gin.Context) {
	accounts, err := h.svc.GetAccounts(userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// 🟡 PUT /api/ledger/accounts/:id — seul chemin d'édition directe du solde
func (h *Handler) UpdateAccount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var fields ledger.AccountUpdate
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	account, err := h.svc.UpdateAccount(userID(c), id, fields)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// 🔴 DELETE /api/ledger/accounts/:id — supprime aussi toutes les transactions
func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteAccount(userID(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// 🔵 GET /api/ledger/accounts/:id/transactions
func (h *Handler) GetAccountTransactions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	transactions, err := h.svc.GetAccountTransactions(userID(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

//
// --- TRANSACTIONS ---
//

// 🟢 POST /api/ledger/transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	var input ledger.TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	transaction, err := h.svc.CreateTransaction(userID(c), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transaction)
}

// 🟡 PUT /api/ledger/transactions/:id
func (h *Handler) UpdateTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input ledger.TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	transaction, err := h.svc.UpdateTransaction(userID(c), id, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

// 🔴 DELETE /api/ledger/transactions/:id — annule son effet sur le solde
func (h *Handler) DeleteTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteTransaction(userID(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
