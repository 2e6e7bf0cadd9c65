package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/handlers"
	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/pkg/view"
)

type UsersHandler struct {
	Users *users.AdminService
}

type userList struct {
	Items      []users.User    `json:"items"`
	Pagination view.Pagination `json:"pagination"`
}

// GET /api/admin/customers?q=&page=
func (h *UsersHandler) Customers(c *gin.Context) {
	page, size := handlers.Page(c, 30)
	res, err := h.Users.ListCustomers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userList{Items: res.Items, Pagination: view.NewPagination(page, size, res.Total)})
}

// GET /api/admin/admins
func (h *UsersHandler) Admins(c *gin.Context) {
	page, _ := handlers.Page(c, 100)
	res, err := h.Users.ListAdmins(c.Request.Context(), page)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userList{Items: res.Items, Pagination: view.NewPagination(page, 100, res.Total)})
}

type createAdminReq struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"required,max=120"`
	Role     string `json:"role" binding:"required,oneof=admin super_admin"`
}

// POST /api/admin/admins
func (h *UsersHandler) CreateAdmin(c *gin.Context) {
	var in createAdminReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	u, err := h.Users.CreateAdmin(c.Request.Context(), users.CreateAdminInput{
		Email:    in.Email,
		Password: in.Password,
		FullName: in.FullName,
		Role:     in.Role,
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

type roleReq struct {
	Role string `json:"role" binding:"required,oneof=customer admin super_admin"`
}

// PATCH /api/admin/admins/:id/role
func (h *UsersHandler) SetRole(c *gin.Context) {
	var in roleReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	u, err := h.Users.SetRole(c.Request.Context(), handlers.MustUser(c).ID, c.Param("id"), in.Role)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// DELETE /api/admin/admins/:id demotes the account to customer.
func (h *UsersHandler) RemoveAdmin(c *gin.Context) {
	u, err := h.Users.RemoveAdmin(c.Request.Context(), handlers.MustUser(c).ID, c.Param("id"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
