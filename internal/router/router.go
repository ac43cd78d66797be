package router

import (
	"log/slog"
	"net/http"

	"campusdesk/internal/authz"
	"campusdesk/internal/handlers"
	"campusdesk/internal/metrics"
	"campusdesk/internal/middleware"
	"campusdesk/internal/realtime"
	"campusdesk/internal/services"
	"campusdesk/internal/storage"
	"campusdesk/internal/utils"
	"campusdesk/internal/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "campusdesk_session"

// Deps is everything the HTTP layer needs from the rest of the app.
type Deps struct {
	Accounts      *services.AccountService
	Issues        *services.IssueService
	Votes         *services.VoteService
	Leaves        *services.LeaveService
	Gate          *services.GatePassService
	Clubs         *services.ClubService
	Notifications *services.NotificationService
	Publisher     *realtime.Publisher
	Uploader      storage.Uploader
	Enforcer      *authz.Enforcer
	Cache         *utils.Cache
	Logger        *slog.Logger

	SessionSecret  string
	CookieSecure   bool
	UploadMaxBytes int64
	Ping           func() error
}

// New builds the engine with middleware and every route.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(metrics.Middleware())

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   d.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(d.Accounts, d.Cache))

	middleware.RegisterValidators()
	r.HTMLRender = web.Renderer()
	r.NoRoute(handlers.NotFound)

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Cache)
	issueHandler := handlers.NewIssueHandler(d.Issues)
	voteHandler := handlers.NewVoteHandler(d.Votes)
	uploadHandler := handlers.NewUploadHandler(d.Uploader, d.UploadMaxBytes)
	leaveHandler := handlers.NewLeaveHandler(d.Leaves)
	gateHandler := handlers.NewGatePassHandler(d.Gate)
	clubHandler := handlers.NewClubHandler(d.Clubs)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)
	adminHandler := handlers.NewAdminHandler(d.Issues, d.Leaves, d.Gate)
	streamHandler := handlers.NewStreamHandler(d.Publisher)

	can := func(a authz.Action) gin.HandlerFunc { return middleware.RequireAction(d.Enforcer, a) }

	// Ops
	r.GET("/healthz", handlers.Healthz(d.Ping))
	r.GET("/metrics", metrics.Handler())
	r.GET("/denied", handlers.Denied) // access-denied interstitial

	api := r.Group("/api")

	// Public
	auth := api.Group("/auth")
	{
		auth.GET("/captcha", authHandler.Captcha) // sign-up challenge
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/verify", authHandler.Verify) // emailed code
		auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
	}
	api.GET("/issues", can(authz.ActionBrowse), issueHandler.List)
	api.GET("/issues/:id", can(authz.ActionBrowse), issueHandler.Detail)
	api.GET("/clubs", can(authz.ActionBrowse), clubHandler.ListClubs)
	api.GET("/clubs/:id", can(authz.ActionBrowse), clubHandler.Club)
	api.GET("/events", can(authz.ActionBrowse), clubHandler.Events)

	// Signed in
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", authHandler.Me)
		authorized.GET("/issues/mine", issueHandler.Mine)
		authorized.GET("/stream/:topic", streamHandler.Stream) // SSE change feed

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)

		authorized.POST("/issues", can(authz.ActionReportIssue), issueHandler.Create)
		authorized.PUT("/issues/:id", can(authz.ActionReportIssue), issueHandler.Update) // owner only
		authorized.DELETE("/issues/:id", can(authz.ActionReportIssue), issueHandler.Delete)
		authorized.POST("/issues/:id/vote", can(authz.ActionVote), voteHandler.Vote)
		authorized.POST("/uploads", can(authz.ActionUploadImage), uploadHandler.Upload)
		authorized.POST("/events", can(authz.ActionPublishEvent), clubHandler.PublishEvent)
	}

	// Hostel leave
	leaves := api.Group("/leaves")
	leaves.Use(middleware.AuthRequired(), can(authz.ActionApplyLeave))
	{
		leaves.GET("", leaveHandler.Mine)
		leaves.GET("/active", leaveHandler.Active)
		leaves.POST("", leaveHandler.Submit)
		leaves.POST("/:id/depart", leaveHandler.Depart)          // approved -> out_of_campus
		leaves.POST("/:id/return", leaveHandler.Return)          // out_of_campus -> completed
		leaves.POST("/:id/mark-return", leaveHandler.MarkReturn) // approved -> completed
	}

	// Market gate pass
	gate := api.Group("/gatepass")
	gate.Use(middleware.AuthRequired(), can(authz.ActionUseGatePass))
	{
		gate.GET("", gateHandler.Mine)
		gate.GET("/active", gateHandler.Active)
		gate.POST("/leave", gateHandler.Leave)
		gate.POST("/enter", gateHandler.Enter)
	}

	// Admin console
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired())
	{
		admin.GET("/dashboard", can(authz.ActionViewDashboard), adminHandler.Dashboard)
		admin.GET("/issues", can(authz.ActionResolveIssue), adminHandler.Issues)
		admin.POST("/issues/:id/resolve", can(authz.ActionResolveIssue), adminHandler.ResolveIssue)

		admin.GET("/leaves/pending", can(authz.ActionDecideLeave), adminHandler.PendingLeaves)
		admin.GET("/leaves/active", can(authz.ActionDecideLeave), adminHandler.ActiveLeaves)
		admin.GET("/leaves/history", can(authz.ActionDecideLeave), adminHandler.LeaveHistory)
		admin.GET("/leaves/:id", can(authz.ActionDecideLeave), adminHandler.LeaveDetail)
		admin.POST("/leaves/:id/approve", can(authz.ActionDecideLeave), adminHandler.ApproveLeave)
		admin.POST("/leaves/:id/reject", can(authz.ActionDecideLeave), adminHandler.RejectLeave)

		admin.GET("/gate", can(authz.ActionViewGateLog), adminHandler.GateLog)
	}
}
