package routes

import (
	"github.com/gin-gonic/gin"

	"vendora_back_end/internal/handlers/admin"
	ledgerh "vendora_back_end/internal/handlers/ledger"
	pa "vendora_back_end/internal/handlers/payement"
	"vendora_back_end/internal/handlers/product"
	"vendora_back_end/internal/handlers/user"
	"vendora_back_end/internal/middleware"
)

// RegisterRoutes câble toute l'API sous /api. Trois niveaux d'accès :
// public, authentifié (JWT), puis seller/admin par rôle typé.
func RegisterRoutes(r *gin.Engine, ledgerHandler *ledgerh.Handler) {
	api := r.Group("/api")

	// --- Auth (public) ---
	api.POST("/register", user.CreateUser)
	api.POST("/login", middleware.LoginRateLimit(), user.Login)
	api.GET("/auth/:provider", user.BeginAuth)
	api.GET("/auth/:provider/callback", user.CallbackAuth)
	api.POST("/auth/google/mobile", user.GoogleMobileLogin)
	api.POST("/auth/facebook/mobile", user.FacebookMobileLogin)
	api.POST("/auth/forgot-password", user.ForgotPassword)
	api.POST("/auth/reset-password", user.ResetPassword)

	// --- Webhook Stripe (signé, pas de JWT) ---
	api.POST("/webhook/stripe", pa.StripeWebhook)

	// --- Catalogue (public, rate-limité par IP) ---
	catalogue := api.Group("", middleware.APIRateLimit())
	{
		catalogue.GET("/products", product.GetAllProducts)
		catalogue.GET("/products/search", product.SearchProducts)
		catalogue.GET("/products/bestsellers", product.GetBestSellers)
		catalogue.GET("/products/:id", product.GetProduct)
		catalogue.GET("/products/:id/images", product.GetProductImages)
		catalogue.GET("/categories", product.GetAllCategories)
		catalogue.GET("/categories/:id/products", product.GetProductsByCategory)
		catalogue.GET("/collections", product.GetAllCollections)
		catalogue.GET("/collections/:id", product.GetCollection)
	}

	// --- Espace authentifié ---
	authed := api.Group("")
	authed.Use(middleware.AuthRequired())
	{
		authed.GET("/me", user.Me)
		authed.PATCH("/me", user.UpdateProfile)
		authed.POST("/auth/change-password", user.ChangePassword)
		authed.DELETE("/me", user.DeleteAccount)

		// Panier
		authed.GET("/cart", user.GetCart)
		authed.POST("/cart/add", user.AddToCart)
		authed.POST("/cart/merge", user.MergeCart)
		authed.DELETE("/cart/clear", user.ClearCart)
		authed.PATCH("/cart/:productId", user.UpdateCartQuantity)
		authed.DELETE("/cart/:productId", user.RemoveFromCart)
		authed.GET("/cart/ws", user.CartWebSocket)

		// Wishlist
		authed.GET("/wishlist", user.GetWishlist)
		authed.POST("/wishlist", user.AddToWishlist)
		authed.DELETE("/wishlist/:productId", user.RemoveFromWishlist)

		// Adresses
		authed.GET("/addresses", user.ListMyAddresses)
		authed.POST("/addresses", user.CreateAddress)
		authed.PATCH("/addresses/:id/default", user.MakeDefaultAddress)
		authed.DELETE("/addresses/:id", user.DeleteAddress)

		// Checkout / paiement
		authed.POST("/checkout", pa.Checkout)
		authed.GET("/checkout/coupon", pa.ValidateCoupon)
		authed.POST("/payment/intent", pa.CreatePaymentIntent)

		// Commandes
		authed.GET("/orders", user.GetMyOrders)
		authed.GET("/orders/:id", user.GetOrder)
		authed.GET("/orders/:id/invoice", user.DownloadInvoice)
		authed.GET("/orders/:id/qr", user.OrderQR)

		// Grand livre
		ledgerGroup := authed.Group("/ledger")
		{
			ledgerGroup.POST("/accounts", ledgerHandler.CreateAccount)
			ledgerGroup.GET("/accounts", ledgerHandler.GetAccounts)
			ledgerGroup.PUT("/accounts/:id", ledgerHandler.UpdateAccount)
			ledgerGroup.DELETE("/accounts/:id", ledgerHandler.DeleteAccount)
			ledgerGroup.GET("/accounts/:id/transactions", ledgerHandler.GetAccountTransactions)
			ledgerGroup.POST("/transactions", ledgerHandler.CreateTransaction)
			ledgerGroup.PUT("/transactions/:id", ledgerHandler.UpdateTransaction)
			ledgerGroup.DELETE("/transactions/:id", ledgerHandler.DeleteTransaction)
		}
	}

	// --- Espace vendeur ---
	seller := api.Group("")
	seller.Use(middleware.AuthRequired(), middleware.RequireSeller)
	{
		seller.POST("/products", product.CreateProduct)
		seller.PUT("/products/:id", product.UpdateProduct)
		seller.DELETE("/products/:id", product.DeleteProduct)
		seller.POST("/products/images", product.UploadProductImage)
		seller.POST("/products/images/attach", product.AddImageToProduct)
		seller.POST("/collections", product.CreateCollection)
		seller.DELETE("/collections/:id", product.DeleteCollection)
	}

	// --- Espace admin ---
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adminGroup.GET("/users", admin.GetUsers)
		adminGroup.PATCH("/users/:id/role", admin.UpdateUserRole)
		adminGroup.PATCH("/orders/:id/status", admin.UpdateOrderStatus)
		adminGroup.POST("/categories", product.CreateCategory)
		adminGroup.PUT("/categories/:id", product.UpdateCategory)
		adminGroup.DELETE("/categories/:id", product.DeleteCategory)
	}
}
