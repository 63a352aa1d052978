package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"itemcatalog/internal/database"
	"itemcatalog/internal/forms"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/metrics"
	"itemcatalog/internal/models"

	"github.com/gin-gonic/gin"
)

func (a *App) handleItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		a.notFound(c)
		return
	}
	ctx := c.Request.Context()

	item, err := database.GetItem(ctx, a.DB, id)
	if err != nil {
		a.fail(c, err)
		return
	}

	category, err := database.GetCategory(ctx, a.DB, item.Category)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.render(c, http.StatusOK, "item.html", gin.H{
		"Title":    item.Name,
		"Item":     item,
		"Category": category,
	})
}

func (a *App) renderItemForm(c *gin.Context, status int, title, action string, choices []models.Category, form *forms.ItemForm, errs forms.Errors) {
	a.render(c, status, "item_form.html", gin.H{
		"Title":      title,
		"Action":     action,
		"Categories": choices,
		"Form":       form,
		"Errors":     errs,
	})
}

// bindItemForm decodes the submitted item and checks its category against
// the categories as they are right now.
func (a *App) bindItemForm(c *gin.Context) (*forms.ItemForm, []models.Category, forms.Errors, error) {
	form := &forms.ItemForm{}
	errs := forms.Bind(c, form)

	choices, err := database.ListCategories(c.Request.Context(), a.DB)
	if err != nil {
		return nil, nil, nil, err
	}
	form.CheckCategory(choices, errs)

	return form, choices, errs, nil
}

func (a *App) handleNewItemPage(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	ctx := c.Request.Context()

	choices, err := database.ListCategories(ctx, a.DB)
	if err != nil {
		a.fail(c, err)
		return
	}

	form := &forms.ItemForm{}
	if name := c.Query("category"); name != "" {
		for _, choice := range choices {
			if choice.Name == name {
				form.Category = strconv.FormatInt(choice.ID, 10)
				break
			}
		}
	}

	a.renderItemForm(c, http.StatusOK, "Add Item", "/items/add", choices, form, forms.Errors{})
}

func (a *App) handleCreateItem(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}

	form, choices, errs, err := a.bindItemForm(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	if errs.Any() {
		a.renderItemForm(c, http.StatusBadRequest, "Add Item", "/items/add", choices, form, errs)
		return
	}

	item, err := database.CreateItem(c.Request.Context(), a.DB, form.Name, form.CategoryID(), form.Description)
	if errors.Is(err, database.ErrIntegrity) {
		// the category was deleted after the choices were loaded
		errs.Add("category", "Not a valid choice")
		a.renderItemForm(c, http.StatusBadRequest, "Add Item", "/items/add", choices, form, errs)
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	metrics.RecordMutation("item", "create")
	logger.Info("Item created", "item_id", item.ID, "category_id", item.Category)
	a.flashRedirect(c, fmt.Sprintf("Added item %s.", item.Name), "/")
}

func (a *App) handleEditItemPage(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	id, ok := itemID(c)
	if !ok {
		a.notFound(c)
		return
	}
	ctx := c.Request.Context()

	item, err := database.GetItem(ctx, a.DB, id)
	if err != nil {
		a.fail(c, err)
		return
	}

	choices, err := database.ListCategories(ctx, a.DB)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.renderItemForm(c, http.StatusOK, "Edit Item", fmt.Sprintf("/items/%d/edit", item.ID), choices, forms.NewItemForm(item), forms.Errors{})
}

func (a *App) handleEditItem(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	id, ok := itemID(c)
	if !ok {
		a.notFound(c)
		return
	}
	ctx := c.Request.Context()

	if _, err := database.GetItem(ctx, a.DB, id); err != nil {
		a.fail(c, err)
		return
	}
	action := fmt.Sprintf("/items/%d/edit", id)

	form, choices, errs, err := a.bindItemForm(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	if errs.Any() {
		a.renderItemForm(c, http.StatusBadRequest, "Edit Item", action, choices, form, errs)
		return
	}

	item, err := database.UpdateItem(ctx, a.DB, id, form.Name, form.CategoryID(), form.Description)
	if errors.Is(err, database.ErrIntegrity) {
		errs.Add("category", "Not a valid choice")
		a.renderItemForm(c, http.StatusBadRequest, "Edit Item", action, choices, form, errs)
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	metrics.RecordMutation("item", "update")
	logger.Info("Item updated", "item_id", item.ID, "category_id", item.Category)
	a.flashRedirect(c, fmt.Sprintf("Updated item %s.", item.Name), "/")
}

func (a *App) handleDeleteItemPage(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	id, ok := itemID(c)
	if !ok {
		a.notFound(c)
		return
	}

	item, err := database.GetItem(c.Request.Context(), a.DB, id)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.render(c, http.StatusOK, "item_delete.html", gin.H{
		"Title": "Delete " + item.Name,
		"Item":  item,
	})
}

func (a *App) handleDeleteItem(c *gin.Context) {
	if !a.requireLogin(c) {
		return
	}
	id, ok := itemID(c)
	if !ok {
		a.notFound(c)
		return
	}
	ctx := c.Request.Context()

	item, err := database.GetItem(ctx, a.DB, id)
	if err != nil {
		a.fail(c, err)
		return
	}

	if err := database.DeleteItem(ctx, a.DB, item.ID); err != nil {
		a.fail(c, err)
		return
	}

	metrics.RecordMutation("item", "delete")
	logger.Info("Item deleted", "item_id", item.ID)
	a.flashRedirect(c, fmt.Sprintf("Deleted item %s.", item.Name), "/")
}
