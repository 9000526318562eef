package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/services"
)

// ExpenseController handles operational expense records
type ExpenseController struct {
	expenses repositories.ExpenseRepository
}

// NewExpenseController creates a new expense controller
func NewExpenseController(expenses repositories.ExpenseRepository) *ExpenseController {
	return &ExpenseController{expenses: expenses}
}

// CreateExpense records a new pending expense
func (ec *ExpenseController) CreateExpense(c echo.Context) error {
	var req models.ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	expense := &models.Expense{
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Vendor:      req.Vendor,
		Status:      models.ExpenseStatusPending,
		IncurredAt:  req.IncurredAt,
		CreatedAt:   time.Now(),
	}
	if err := ec.expenses.Insert(c.Request().Context(), expense); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Expense recorded successfully",
		Data:    expense,
	})
}

// ApproveExpense moves a pending expense to approved
func (ec *ExpenseController) ApproveExpense(c echo.Context) error {
	expenseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid expense ID")
	}

	expense, err := ec.expenses.FindByID(c.Request().Context(), expenseID)
	if err != nil {
		return respondError(c, err)
	}
	if expense == nil {
		return respondError(c, &services.NotFoundError{Entity: "expense", ID: expenseID.Hex()})
	}
	if expense.Status != models.ExpenseStatusPending {
		return respondError(c, &services.ConflictError{Reason: "expense is not pending approval"})
	}

	now := time.Now()
	expense.Status = models.ExpenseStatusApproved
	expense.ApprovedBy = approverFromContext(c)
	expense.ApprovedAt = &now
	if err := ec.expenses.Replace(c.Request().Context(), expense); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Expense approved successfully",
		Data:    expense,
	})
}

// RejectExpense moves a pending expense to rejected
func (ec *ExpenseController) RejectExpense(c echo.Context) error {
	expenseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid expense ID")
	}

	expense, err := ec.expenses.FindByID(c.Request().Context(), expenseID)
	if err != nil {
		return respondError(c, err)
	}
	if expense == nil {
		return respondError(c, &services.NotFoundError{Entity: "expense", ID: expenseID.Hex()})
	}
	if expense.Status != models.ExpenseStatusPending {
		return respondError(c, &services.ConflictError{Reason: "expense is not pending approval"})
	}

	expense.Status = models.ExpenseStatusRejected
	if err := ec.expenses.Replace(c.Request().Context(), expense); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Expense rejected",
		Data:    expense,
	})
}

// ListExpenses returns expenses, optionally filtered by status
func (ec *ExpenseController) ListExpenses(c echo.Context) error {
	expenses, err := ec.expenses.Find(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Expenses retrieved successfully",
		Data:    expenses,
	})
}
