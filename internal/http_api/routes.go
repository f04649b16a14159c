package http_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.Any("/healthy", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api/v1")

	// Reads that do not depend on the caller
	api.GET("/roles/:address", s.getAdminRole)
	api.GET("/members/:address/transactions", s.getMemberTransactions)
	api.GET("/token", s.tokenInfo)
	api.GET("/token/balance/:address", s.tokenBalance)
	api.GET("/token/allowance/:address", s.tokenAllowance)
	api.POST("/token/mint", s.mint)
	api.GET("/custody", s.custody)
	api.GET("/events", s.events)

	authed := api.Group("", s.requireCaller())
	authed.POST("/wallet", s.registerWallet)
	authed.GET("/wallet", s.getWalletAdmin)
	authed.POST("/wallet/reimburse", s.reimburseWallet)
	authed.POST("/members", s.onboardMember)
	authed.GET("/members", s.getMembers)
	authed.GET("/member", s.getMember)
	authed.POST("/identifiers/:identifier/reimburse", s.reimburseMember)
	authed.POST("/members/:address/freeze", s.freezeMember)
	authed.POST("/members/:address/unfreeze", s.unfreezeMember)
	authed.DELETE("/members/:address", s.removeMember)
	authed.POST("/withdrawals", s.memberWithdrawal)
	authed.POST("/token/approve", s.approve)
}
