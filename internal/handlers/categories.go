package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"itemcatalog/internal/database"
	"itemcatalog/internal/forms"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/metrics"

	"github.com/gin-gonic/gin"
)

const msgDuplicateCategory = "A category with this name already exists."

// categoryPath is the URL of a category page plus an optional suffix. Names
// may contain '/', '#' or '?', so they are escaped as one segment.
func categoryPath(name, suffix string) string {
	return "/categories/" + url.PathEscape(name) + suffix
}

func (a *App) handleCategory(c *gin.Context) {
	ctx := c.Request.Context()

	category, err := database.GetCategoryByName(ctx, a.DB, c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}

	items, err := database.ListItemsByCategory(ctx, a.DB, category.ID)
	if err != nil {
		a.fail(c, err)
		return
	}

	categories, err := database.ListCategories(ctx, a.DB)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.render(c, http.StatusOK, "category.html", gin.H{
		"Title":      category.Name,
		"Category":   category,
		"Categories": categories,
		"Items":      items,
	})
}

func (a *App) renderCategoryForm(c *gin.Context, status int, title, action string, form *forms.CategoryForm, errs forms.Errors) {
	a.render(c, status, "category_form.html", gin.H{
		"Title":  title,
		"Action": action,
		"Form":   form,
		"Errors": errs,
	})
}

func (a *App) handleNewCategoryPage(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	a.renderCategoryForm(c, http.StatusOK, "Add Category", "/category_add", &forms.CategoryForm{}, forms.Errors{})
}

func (a *App) handleCreateCategory(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}

	form := &forms.CategoryForm{}
	if errs := forms.Bind(c, form); errs.Any() {
		a.renderCategoryForm(c, http.StatusBadRequest, "Add Category", "/category_add", form, errs)
		return
	}

	category, err := database.CreateCategory(c.Request.Context(), a.DB, form.Name, form.Description)
	if errors.Is(err, database.ErrIntegrity) {
		errs := forms.Errors{}
		errs.Add("name", msgDuplicateCategory)
		a.renderCategoryForm(c, http.StatusBadRequest, "Add Category", "/category_add", form, errs)
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	metrics.RecordMutation("category", "create")
	logger.Info("Category created", "category_id", category.ID, "name", category.Name)
	a.flashRedirect(c, fmt.Sprintf("Added category %s.", category.Name), "/")
}

func (a *App) handleEditCategoryPage(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}

	category, err := database.GetCategoryByName(c.Request.Context(), a.DB, c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}

	a.renderCategoryForm(c, http.StatusOK, "Edit Category", categoryPath(category.Name, "/edit"), forms.NewCategoryForm(category), forms.Errors{})
}

func (a *App) handleEditCategory(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	ctx := c.Request.Context()

	category, err := database.GetCategoryByName(ctx, a.DB, c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}
	action := categoryPath(category.Name, "/edit")

	form := &forms.CategoryForm{}
	if errs := forms.Bind(c, form); errs.Any() {
		a.renderCategoryForm(c, http.StatusBadRequest, "Edit Category", action, form, errs)
		return
	}

	updated, err := database.UpdateCategory(ctx, a.DB, category.ID, form.Name, form.Description)
	if errors.Is(err, database.ErrIntegrity) {
		errs := forms.Errors{}
		errs.Add("name", msgDuplicateCategory)
		a.renderCategoryForm(c, http.StatusBadRequest, "Edit Category", action, form, errs)
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	metrics.RecordMutation("category", "update")
	logger.Info("Category updated", "category_id", updated.ID, "name", updated.Name)
	a.flashRedirect(c, fmt.Sprintf("Updated category %s.", updated.Name), "/")
}

func (a *App) handleDeleteCategoryPage(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	ctx := c.Request.Context()

	category, err := database.GetCategoryByName(ctx, a.DB, c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}

	items, err := database.ListItemsByCategory(ctx, a.DB, category.ID)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.render(c, http.StatusOK, "category_delete.html", gin.H{
		"Title":     "Delete " + category.Name,
		"Category":  category,
		"ItemCount": len(items),
	})
}

func (a *App) handleDeleteCategory(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	ctx := c.Request.Context()

	category, err := database.GetCategoryByName(ctx, a.DB, c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}

	if err := database.DeleteCategory(ctx, a.DB, category.ID); err != nil {
		a.fail(c, err)
		return
	}

	metrics.RecordMutation("category", "delete")
	logger.Info("Category deleted", "category_id", category.ID, "name", category.Name)
	a.flashRedirect(c, fmt.Sprintf("Deleted category %s.", category.Name), "/")
}
