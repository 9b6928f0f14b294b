package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"adminbot/internal/adminapi"
	"adminbot/internal/models"
)

func (e *Engine) showDishList(ctx context.Context, t *turn) {
	restaurants, err := e.api.ListRestaurants(ctx)
	if err != nil {
		e.backendFailure(ctx, t, "Ошибка загрузки блюд", err, e.render.DishesMenu())
		return
	}

	menus := make([]RestaurantMenu, 0, len(restaurants))
	for _, r := range restaurants {
		dishes, err := e.api.RestaurantMenu(ctx, r.ID)
		if err != nil {
			e.logger.Warn("Failed to load restaurant menu", zap.Int64("restaurant_id", r.ID), zap.Error(err))
			continue
		}
		menus = append(menus, RestaurantMenu{Restaurant: r, Dishes: dishes})
	}
	e.show(ctx, t, e.render.DishList(menus))
}

func (e *Engine) startCreate(ctx context.Context, t *turn) {
	restaurants, err := e.api.ListRestaurants(ctx)
	if err != nil {
		e.backendFailure(ctx, t, "Ошибка загрузки ресторанов", err, e.render.DishesMenu())
		return
	}
	if len(restaurants) == 0 {
		e.show(ctx, t, e.render.NoRestaurants())
		return
	}
	e.show(ctx, t, e.render.RestaurantPicker(restaurants))
}

func (e *Engine) chooseRestaurant(ctx context.Context, t *turn, restaurantID int64) {
	draft := &DishDraft{RestaurantID: restaurantID, IdempotencyKey: e.newKey()}
	t.setMode(CreatingDish(draft, StepName))
	e.show(ctx, t, e.render.CreatePrompt(StepName, ""))
}

func (e *Engine) handleCreateInput(ctx context.Context, t *turn, text string) {
	mode := t.session.Mode
	if mode.Draft == nil {
		t.setMode(Idle())
		e.show(ctx, t, e.render.DishesMenu())
		return
	}
	// The stored draft is never mutated in place
	draft := *mode.Draft

	var err error
	next := mode.Step
	switch mode.Step {
	case StepName:
		if looksLikeFieldBlock(text) {
			e.quickCreate(ctx, t, draft, text)
			return
		}
		draft.Name, err = parseText(FieldName, text)
		next = StepDescription
	case StepDescription:
		draft.Description, err = parseText(FieldDescription, text)
		next = StepPrice
	case StepPrice:
		draft.Price, err = parsePositivePrice(text)
		next = StepPrepTime
	case StepPrepTime:
		draft.PreparationTime, err = parsePositiveInt(FieldPrepTime, text)
		if err == nil {
			e.submitDraft(ctx, t, draft)
			return
		}
	}

	if err != nil {
		e.show(ctx, t, e.render.CreatePrompt(mode.Step, validationMessage(err)))
		return
	}
	t.setMode(CreatingDish(&draft, next))
	e.show(ctx, t, e.render.CreatePrompt(next, ""))
}

// quickCreate submits a draft given as a "Label: value" block containing at least name and price
func (e *Engine) quickCreate(ctx context.Context, t *turn, draft DishDraft, text string) {
	patch, _, err := ParseFieldBlock(text)
	if err != nil {
		e.show(ctx, t, e.render.CreatePrompt(StepName, validationMessage(err)))
		return
	}
	if patch.Name == nil || patch.Price == nil {
		e.show(ctx, t, e.render.CreatePrompt(StepName, "Блок должен содержать как минимум название и цену"))
		return
	}

	draft.Name = *patch.Name
	draft.Price = *patch.Price
	if patch.Description != nil {
		draft.Description = *patch.Description
	}
	if patch.PreparationTime != nil {
		draft.PreparationTime = *patch.PreparationTime
	}
	if patch.IsSpicy != nil {
		draft.IsSpicy = *patch.IsSpicy
	}
	if patch.IsVegetarian != nil {
		draft.IsVegetarian = *patch.IsVegetarian
	}
	e.submitDraft(ctx, t, draft)
}

func (e *Engine) submitDraft(ctx context.Context, t *turn, draft DishDraft) {
	// The draft is discarded whatever the outcome
	t.setMode(Idle())

	req := models.CreateDishRequest{
		RestaurantID:    draft.RestaurantID,
		Name:            draft.Name,
		Description:     draft.Description,
		Price:           draft.Price,
		PreparationTime: draft.PreparationTime,
		IsVegetarian:    draft.IsVegetarian,
		IsSpicy:         draft.IsSpicy,
	}
	dish, err := e.api.CreateDish(ctx, req, draft.IdempotencyKey)
	if err != nil {
		e.logger.Error("Failed to create dish", zap.Int64("chat_id", t.chatID()), zap.Int64("restaurant_id", draft.RestaurantID), zap.Error(err))
		e.backendFailure(ctx, t, "Ошибка создания блюда", err, e.render.DishesMenu())
		return
	}

	e.logger.Info("Dish created", zap.Int64("chat_id", t.chatID()), zap.Int64("dish_id", dish.ID))
	e.record(ctx, t, "dish_create", models.FormatID(dish.ID), dish.Name)
	e.show(ctx, t, e.render.DishCreated(*dish))
}

func (e *Engine) openDish(ctx context.Context, t *turn, dishID int64) {
	dish, err := e.api.GetDish(ctx, dishID)
	if adminapi.IsNotFound(err) {
		e.logger.Info("Dish not found", zap.Int64("chat_id", t.chatID()), zap.Int64("dish_id", dishID))
		e.show(ctx, t, e.render.DishNotFound(dishID))
		return
	}
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка загрузки блюда #%d", dishID), err, e.render.DishesMenu())
		return
	}
	t.setMode(EditingDish(dishID))
	e.show(ctx, t, e.render.DishCard(*dish, "", true))
}

func (e *Engine) toggleDish(ctx context.Context, t *turn, dishID int64) {
	dish, err := e.api.ToggleDish(ctx, dishID)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка изменения статуса блюда #%d", dishID), err, e.render.DishesMenu())
		return
	}

	header := "✅ Блюдо теперь доступно"
	if !dish.IsAvailable {
		header = "❌ Блюдо теперь недоступно"
	}
	e.record(ctx, t, "dish_toggle", models.FormatID(dishID), fmt.Sprintf("is_available=%t", dish.IsAvailable))
	t.setMode(EditingDish(dishID))
	e.show(ctx, t, e.render.DishCard(*dish, header, true))
}

func (e *Engine) askField(ctx context.Context, t *turn, dishID int64, f Field) {
	if _, ok := lookupField(f); !ok {
		e.logger.Warn("Unknown dish field", zap.String("field", string(f)))
		e.show(ctx, t, e.render.DishesMenu())
		return
	}
	t.setMode(EditingDishField(dishID, f))
	e.show(ctx, t, e.render.FieldPrompt(f, ""))
}

func (e *Engine) handleFieldInput(ctx context.Context, t *turn, text string) {
	mode := t.session.Mode
	patch, err := ParseFieldValue(mode.Field, text)
	if err != nil {
		e.show(ctx, t, e.render.FieldPrompt(mode.Field, validationMessage(err)))
		return
	}

	t.setMode(Idle())
	dish, err := e.api.UpdateDish(ctx, mode.DishID, patch)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка обновления блюда #%d", mode.DishID), err, e.render.DishesMenu())
		return
	}
	e.record(ctx, t, "dish_update", models.FormatID(mode.DishID), string(mode.Field)+"="+strings.TrimSpace(text))
	e.show(ctx, t, e.render.FieldUpdated(mode.Field, *dish))
}

func (e *Engine) handleBlockInput(ctx context.Context, t *turn, text string) {
	mode := t.session.Mode
	patch, fields, err := ParseFieldBlock(text)
	if err != nil {
		e.show(ctx, t, e.render.BlockRejected(validationMessage(err)))
		return
	}

	t.setMode(Idle())
	dish, err := e.api.UpdateDish(ctx, mode.DishID, patch)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка обновления блюда #%d", mode.DishID), err, e.render.DishesMenu())
		return
	}

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, string(f))
	}
	e.record(ctx, t, "dish_update", models.FormatID(mode.DishID), strings.Join(names, ","))
	e.show(ctx, t, e.render.BlockUpdated(fields, *dish))
}

func (e *Engine) startSearch(ctx context.Context, t *turn) {
	t.setMode(SearchingDish())
	e.show(ctx, t, e.render.SearchPrompt(""))
}

func (e *Engine) handleSearchInput(ctx context.Context, t *turn, text string) {
	dishID, err := parseDishID(text)
	if err != nil {
		e.show(ctx, t, e.render.SearchPrompt(validationMessage(err)))
		return
	}

	t.setMode(Idle())
	dish, err := e.api.GetDish(ctx, dishID)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Блюдо #%d не найдено", dishID), err, e.render.DishesMenu())
		return
	}
	e.show(ctx, t, e.render.DishCard(*dish, "", false))
}

func (e *Engine) confirmDelete(ctx context.Context, t *turn, dishID int64) {
	dish, err := e.api.GetDish(ctx, dishID)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка загрузки блюда #%d", dishID), err, e.render.DishesMenu())
		return
	}
	e.show(ctx, t, e.render.DeleteConfirm(*dish))
}

func (e *Engine) deleteDish(ctx context.Context, t *turn, dishID int64) {
	result, err := e.api.DeleteDish(ctx, dishID)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка удаления блюда #%d", dishID), err, e.render.DishesMenu())
		return
	}

	action := "dish_delete"
	if result.SoftDelete {
		action = "dish_soft_delete"
	}
	e.logger.Info("Dish deleted", zap.Int64("dish_id", dishID), zap.Bool("soft_delete", result.SoftDelete))
	e.record(ctx, t, action, models.FormatID(dishID), "")
	e.show(ctx, t, e.render.DishDeleted(*result))
}

// parseDishField splits "{id}_{field}"; field names may contain underscores
func parseDishField(s string) (int64, Field, bool) {
	idPart, field, ok := strings.Cut(s, "_")
	if !ok || field == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, Field(field), true
}

func validationMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	return err.Error()
}

func (e *Engine) backendFailure(ctx context.Context, t *turn, what string, err error, back Screen) {
	e.logger.Warn("Backend call failed", zap.Int64("chat_id", t.chatID()), zap.String("what", what), zap.Error(err))
	e.show(ctx, t, e.render.BackendFailure(what, userMessage(err), back))
}
