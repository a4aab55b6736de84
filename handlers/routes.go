package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/middlewares"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/models/reports"
)

// Route describes one endpoint under /api. Request and Response are zero values
// of the bodies, used for documentation only.
type Route struct {
	Method   string
	Path     string
	Tag      string
	Summary  string
	Roles    []models.UserRole
	Query    []string
	Request  any
	Response any
	// Status is the success status; 200 when zero.
	Status int
	// Produces overrides application/json.
	Produces string
	Handler  gin.HandlerFunc
}

var supervisors = []models.UserRole{models.UserRoleAdmin, models.UserRoleSupervisor}
var admins = []models.UserRole{models.UserRoleAdmin}

// Routes lists every endpoint; metrics wires the metrics and dashboard handlers.
func Routes(metrics MetricsDeps) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/api/users", Tag: "users", Summary: "List users of the business", Query: []string{"is_active"}, Response: []models.User{}, Handler: listUsersHandler()},
		{Method: http.MethodPost, Path: "/api/users", Tag: "users", Summary: "Create a user", Roles: admins, Request: models.NewUser{}, Response: models.User{}, Status: http.StatusCreated, Handler: createUserHandler()},
		{Method: http.MethodGet, Path: "/api/users/:id", Tag: "users", Summary: "Get a user", Response: models.User{}, Handler: getUserHandler()},
		{Method: http.MethodPost, Path: "/api/users/:id/deactivate", Tag: "users", Summary: "Deactivate a user and revoke their tokens", Roles: admins, Response: models.User{}, Handler: deactivateUserHandler()},
		{Method: http.MethodPost, Path: "/api/users/:id/tokens", Tag: "users", Summary: "Issue an access token", Roles: admins, Request: newAccessTokenRequest{}, Response: newAccessTokenResponse{}, Status: http.StatusCreated, Handler: createAccessTokenHandler()},
		{Method: http.MethodDelete, Path: "/api/tokens/:id", Tag: "users", Summary: "Revoke an access token", Roles: admins, Response: models.AccessToken{}, Handler: revokeAccessTokenHandler()},

		{Method: http.MethodGet, Path: "/api/clients", Tag: "clients", Summary: "Search clients", Query: []string{"search", "page", "limit"}, Response: listResponse[models.Client]{}, Handler: listClientsHandler()},
		{Method: http.MethodPost, Path: "/api/clients", Tag: "clients", Summary: "Create a client", Request: models.NewClient{}, Response: models.Client{}, Status: http.StatusCreated, Handler: createClientHandler()},
		{Method: http.MethodGet, Path: "/api/clients/:id", Tag: "clients", Summary: "Get a client", Response: models.Client{}, Handler: getClientHandler()},
		{Method: http.MethodPut, Path: "/api/clients/:id", Tag: "clients", Summary: "Update a client", Request: models.NewClient{}, Response: models.Client{}, Handler: updateClientHandler()},

		{Method: http.MethodGet, Path: "/api/credits", Tag: "credits", Summary: "List credits; agents only see their own", Query: []string{"user_id", "client_id", "tray", "page", "limit"}, Response: listResponse[models.Credit]{}, Handler: listCreditsHandler()},
		{Method: http.MethodPost, Path: "/api/credits", Tag: "credits", Summary: "Create a credit", Roles: supervisors, Request: models.NewCredit{}, Response: models.Credit{}, Status: http.StatusCreated, Handler: createCreditHandler()},
		{Method: http.MethodPost, Path: "/api/credits/assign", Tag: "credits", Summary: "Assign credits to an agent", Roles: supervisors, Request: assignCreditsRequest{}, Response: assignCreditsResponse{}, Handler: assignCreditsHandler()},
		{Method: http.MethodPost, Path: "/api/credits/sync", Tag: "credits", Summary: "Upsert a batch of credits from the core system", Roles: admins, Request: syncCreditsRequest{}, Response: models.CreditSyncResult{}, Handler: syncCreditsHandler()},
		{Method: http.MethodGet, Path: "/api/credits/:id", Tag: "credits", Summary: "Get a credit", Response: models.Credit{}, Handler: getCreditHandler()},
		{Method: http.MethodPut, Path: "/api/credits/:id/management", Tag: "credits", Summary: "Move a credit between trays", Request: creditManagementRequest{}, Response: models.Credit{}, Handler: updateCreditManagementHandler()},
		{Method: http.MethodGet, Path: "/api/credits/:id/time-in-state", Tag: "credits", Summary: "Elapsed time in the current tray", Response: reports.CreditTimeInStateResponse{}, Handler: creditTimeInStateHandler()},
		{Method: http.MethodGet, Path: "/api/credits/:id/managements", Tag: "credits", Summary: "Management history of a credit", Response: []models.Management{}, Handler: listCreditManagementsHandler()},
		{Method: http.MethodGet, Path: "/api/credits/:id/collection-calls", Tag: "credits", Summary: "Calls made for a credit", Response: []models.CollectionCall{}, Handler: listCreditCallsHandler()},
		{Method: http.MethodGet, Path: "/api/credits/:id/expenses", Tag: "credits", Summary: "Collection expenses of a credit with total", Response: models.CollectionExpenseList{}, Handler: listCreditExpensesHandler()},

		{Method: http.MethodGet, Path: "/api/campaigns", Tag: "campaigns", Summary: "List campaigns", Query: []string{"page", "limit"}, Response: listResponse[models.Campaign]{}, Handler: listCampaignsHandler()},
		{Method: http.MethodPost, Path: "/api/campaigns", Tag: "campaigns", Summary: "Create a campaign", Roles: supervisors, Request: models.NewCampaign{}, Response: models.Campaign{}, Status: http.StatusCreated, Handler: createCampaignHandler()},
		{Method: http.MethodGet, Path: "/api/campaigns/active", Tag: "campaigns", Summary: "Campaigns running now", Response: []models.Campaign{}, Handler: activeCampaignsHandler()},
		{Method: http.MethodGet, Path: "/api/campaigns/:id", Tag: "campaigns", Summary: "Get a campaign", Response: models.Campaign{}, Handler: getCampaignHandler()},
		{Method: http.MethodPut, Path: "/api/campaigns/:id/agents", Tag: "campaigns", Summary: "Replace the agents of a campaign", Roles: supervisors, Request: campaignAgentsRequest{}, Response: models.Campaign{}, Handler: updateCampaignAgentsHandler()},
		{Method: http.MethodGet, Path: "/api/campaigns/:id/dashboard", Tag: "metrics", Summary: "Per-agent metrics of a campaign", Roles: supervisors, Response: reports.CampaignDashboardResponse{}, Handler: campaignDashboardHandler(metrics)},
		{Method: http.MethodGet, Path: "/api/campaigns/:id/dashboard/export", Tag: "metrics", Summary: "Campaign metrics as an Excel workbook", Roles: supervisors, Produces: xlsxContentType, Handler: campaignDashboardExportHandler(metrics)},

		{Method: http.MethodPost, Path: "/api/managements", Tag: "collections", Summary: "Record a management", Request: models.NewManagement{}, Response: models.Management{}, Status: http.StatusCreated, Handler: createManagementHandler()},
		{Method: http.MethodPost, Path: "/api/collection-calls", Tag: "collections", Summary: "Record a collection call", Request: models.NewCollectionCall{}, Response: models.CollectionCall{}, Status: http.StatusCreated, Handler: createCollectionCallHandler()},
		{Method: http.MethodPost, Path: "/api/agreements", Tag: "collections", Summary: "Create a payment agreement", Request: models.NewAgreement{}, Response: models.Agreement{}, Status: http.StatusCreated, Handler: createAgreementHandler()},
		{Method: http.MethodGet, Path: "/api/agreements/:id", Tag: "collections", Summary: "Get an agreement with its installments", Response: models.Agreement{}, Handler: getAgreementHandler()},
		{Method: http.MethodPut, Path: "/api/agreements/:id/status", Tag: "collections", Summary: "Close an active agreement", Request: agreementStatusRequest{}, Response: models.Agreement{}, Handler: updateAgreementStatusHandler()},
		{Method: http.MethodPost, Path: "/api/condonations", Tag: "collections", Summary: "Request a condonation", Request: models.NewCondonation{}, Response: models.Condonation{}, Status: http.StatusCreated, Handler: createCondonationHandler()},
		{Method: http.MethodPost, Path: "/api/condonations/:id/review", Tag: "collections", Summary: "Approve or reject a condonation", Roles: supervisors, Request: models.CondonationReview{}, Response: models.Condonation{}, Handler: reviewCondonationHandler()},
		{Method: http.MethodPost, Path: "/api/expenses", Tag: "collections", Summary: "Record a collection expense", Request: models.NewCollectionExpense{}, Response: models.CollectionExpense{}, Status: http.StatusCreated, Handler: createCollectionExpenseHandler()},

		{Method: http.MethodGet, Path: "/api/metrics/me", Tag: "metrics", Summary: "Metrics of the calling agent", Query: []string{"campaign_id"}, Response: metricsResponse{}, Handler: myMetricsHandler(metrics)},
		{Method: http.MethodGet, Path: "/api/metrics/users/:id", Tag: "metrics", Summary: "Metrics of a team member", Roles: supervisors, Query: []string{"campaign_id"}, Response: metricsResponse{}, Handler: userMetricsHandler(metrics)},
	}
}

// RegisterRoutes mounts every route under r behind an authenticated session.
func RegisterRoutes(r gin.IRouter, metrics MetricsDeps) {
	api := r.Group("/api", middlewares.RequireSession())
	for _, route := range Routes(metrics) {
		chain := make([]gin.HandlerFunc, 0, 2)
		if len(route.Roles) > 0 {
			chain = append(chain, middlewares.RequireRole(route.Roles...))
		}
		chain = append(chain, route.Handler)
		api.Handle(route.Method, strings.TrimPrefix(route.Path, "/api"), chain...)
	}
}
