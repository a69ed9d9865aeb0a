package common

// Core permission codes checked by handlers and middleware. The database
// seed must define these under the same codes.
const (
	PermCampaignCreate = "campaign:create"
	PermCampaignRead   = "campaign:read"
	PermCampaignUpdate = "campaign:update"
	PermCampaignDelete = "campaign:delete"
	PermContactCreate  = "contact:create"
	PermContactRead    = "contact:read"
	PermContactUpdate  = "contact:update"
	PermContactDelete  = "contact:delete"
	PermBillingManage  = "billing:manage"
	PermOrgManage      = "org:manage"
	PermDashboardView  = "dashboard:view"
	PermAdminAccess    = "admin:access"
)

// Role codes used by registration and seeding.
const (
	RoleIndividual = "INDIVIDUAL"
	RoleOrgAdmin   = "ORG_ADMIN"
	RoleOrgMember  = "ORG_MEMBER"
	RoleAdmin      = "ADMIN"
)
