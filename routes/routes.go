package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"social-hub/controllers"
	"social-hub/metrics"
	"social-hub/middlewares"
	"social-hub/services"
)

type Deps struct {
	Controller  *controllers.Controller
	Tokens      services.TokenParser
	Limiter     *middlewares.RateLimiter
	Log         *logrus.Logger
	CORSOrigins []string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders: []string{middlewares.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(d.Log), middlewares.Metrics())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	ctl := d.Controller
	r.GET("/ws", ctl.WSController)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	// 公开接口，按 IP 限流
	public := api.Group("")
	if d.Limiter != nil {
		public.Use(d.Limiter.Handler())
	}
	{
		public.POST("/register", ctl.Register)
		public.POST("/login", ctl.Login)
		public.GET("/users/:userId", ctl.GetUserProfile)
		public.GET("/users/:userId/followers", ctl.Followers)
		public.GET("/users/:userId/following", ctl.Following)
		public.GET("/users/:userId/products", ctl.UserProducts)
		public.GET("/posts/user/:userId", ctl.UserPosts)
		public.GET("/posts/:postId/comments", ctl.PostComments)
		public.GET("/products", ctl.Products)
		public.GET("/products/:productId", ctl.GetProduct)
		public.GET("/search/users", ctl.SearchUsers)
		public.GET("/search/posts", ctl.SearchPosts)
	}

	// 需要登录，按用户限流
	protected := api.Group("")
	protected.Use(middlewares.TokenAuthMiddleware(d.Tokens))
	if d.Limiter != nil {
		protected.Use(d.Limiter.Handler())
	}
	{
		protected.GET("/user", ctl.GetUserInfo)
		protected.PATCH("/user", ctl.UpdateProfile)
		protected.POST("/users/:userId/follow", ctl.ToggleFollow)

		protected.POST("/posts", ctl.CreatePost)
		protected.GET("/posts/feed", ctl.Feed)
		protected.DELETE("/posts/:postId", ctl.DeletePost)
		protected.POST("/posts/:postId/like", ctl.TogglePostLike)
		protected.POST("/posts/:postId/comments", ctl.CreateComment)
		protected.POST("/comments/:commentId/like", ctl.ToggleCommentLike)

		protected.POST("/stories", ctl.CreateStory)
		protected.GET("/stories", ctl.ActiveStories)
		protected.POST("/stories/:storyId/view", ctl.ViewStory)

		protected.GET("/conversations", ctl.GetConversation)
		protected.POST("/conversations", ctl.CreateConversationHandler)
		protected.GET("/conversations/:conversationId/messages", ctl.GetMessagesByConversationID)
		protected.POST("/conversations/:conversationId/read", ctl.MarkRead)
		protected.POST("/conversations/:conversationId/leave", ctl.LeaveConversation)
		protected.POST("/messages", ctl.SendMessage)

		protected.POST("/products", ctl.CreateProduct)
		protected.POST("/products/:productId/sold", ctl.MarkProductSold)

		protected.GET("/wallet", ctl.WalletBalance)
		protected.GET("/wallet/transactions", ctl.WalletTransactions)
		protected.POST("/wallet/deposit", ctl.Deposit)
		protected.POST("/wallet/withdraw", ctl.Withdraw)
		protected.POST("/wallet/transfer", ctl.Transfer)

		protected.POST("/reports", ctl.CreateReport)
	}

	return r
}
