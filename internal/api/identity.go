package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soaringjerry/modern360/internal/services"
)

func (rt *Router) listCompanies(c echo.Context) error {
	list, err := rt.identity.ListCompanies(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (rt *Router) createCompany(c echo.Context) error {
	req, err := bindAndValidate[services.CreateCompanyInput](c)
	if err != nil {
		return err
	}
	company, err := rt.identity.CreateCompany(c.Request().Context(), *req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, company)
}

func (rt *Router) deleteCompany(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := rt.identity.DeleteCompany(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /api/admin/companies/:id/users lists the company's active users.
func (rt *Router) companyUsers(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	users, err := rt.identity.CompanyUsers(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (rt *Router) createUser(c echo.Context) error {
	req, err := bindAndValidate[services.CreateUserInput](c)
	if err != nil {
		return err
	}
	user, err := rt.identity.CreateUser(c.Request().Context(), *req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (rt *Router) deleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := rt.identity.DeleteUser(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
