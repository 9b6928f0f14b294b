package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"adminbot/internal/models"
)

// Field is an editable dish attribute
type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldPrice       Field = "price"
	FieldPrepTime    Field = "prep_time"
	FieldSpicy       Field = "spicy"
	FieldVegetarian  Field = "vegetarian"
	FieldAvailable   Field = "available"
)

// ValidationError means user input failed a field's parse rule.
// It is handled inside the engine by re-prompting and never reaches the backend.
type ValidationError struct {
	Field Field
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// fieldDef describes how one field is labelled, prompted for and parsed.
// Adding an editable field is a single entry in dishFields.
type fieldDef struct {
	field  Field
	labels []string // lowercased "Label:" keys accepted in text blocks
	button string
	title  string // used in "введите новое значение для ..." prompts
	done   string // used in "... успешно обновлено"
	apply  func(raw string, p *models.DishPatch) error
}

var dishFields = []fieldDef{
	{
		field:  FieldName,
		labels: []string{"название", "name", "имя"},
		button: "✏️ Название",
		title:  "название",
		done:   "Название",
		apply: func(raw string, p *models.DishPatch) error {
			v, err := parseText(FieldName, raw)
			if err != nil {
				return err
			}
			p.Name = &v
			return nil
		},
	},
	{
		field:  FieldDescription,
		labels: []string{"описание", "description"},
		button: "📝 Описание",
		title:  "описание",
		done:   "Описание",
		apply: func(raw string, p *models.DishPatch) error {
			v, err := parseText(FieldDescription, raw)
			if err != nil {
				return err
			}
			p.Description = &v
			return nil
		},
	},
	{
		field:  FieldPrice,
		labels: []string{"цена", "стоимость", "price"},
		button: "💰 Цена",
		title:  "цену",
		done:   "Цена",
		apply: func(raw string, p *models.DishPatch) error {
			v, err := parsePositivePrice(raw)
			if err != nil {
				return err
			}
			p.Price = &v
			return nil
		},
	},
	{
		field:  FieldPrepTime,
		labels: []string{"время", "время приготовления", "prep_time", "preparation_time", "preparation time"},
		button: "⏱️ Время",
		title:  "время приготовления",
		done:   "Время приготовления",
		apply: func(raw string, p *models.DishPatch) error {
			v, err := parsePositiveInt(FieldPrepTime, raw)
			if err != nil {
				return err
			}
			p.PreparationTime = &v
			return nil
		},
	},
	{
		field:  FieldSpicy,
		labels: []string{"острое", "острота", "spicy"},
		button: "🌶️ Острота",
		title:  "остроту (да/нет)",
		done:   "Острота",
		apply: func(raw string, p *models.DishPatch) error {
			v, err := parseYesNo(FieldSpicy, raw)
			if err != nil {
				return err
			}
			p.IsSpicy = &v
			return nil
		},
	},
	{
		field:  FieldVegetarian,
		labels: []string{"вегетарианское", "vegetarian"},
		button: "🥦 Вегетарианское",
		title:  "вегетарианское (да/нет)",
		done:   "Вегетарианское",
		apply: func(raw string, p *models.DishPatch) error {
			v, err := parseYesNo(FieldVegetarian, raw)
			if err != nil {
				return err
			}
			p.IsVegetarian = &v
			return nil
		},
	},
	{
		field:  FieldAvailable,
		labels: []string{"доступно", "доступность", "available"},
		button: "📊 Доступность",
		title:  "доступность (да/нет)",
		done:   "Доступность",
		apply: func(raw string, p *models.DishPatch) error {
			v, err := parseYesNo(FieldAvailable, raw)
			if err != nil {
				return err
			}
			p.IsAvailable = &v
			return nil
		},
	},
}

func lookupField(f Field) (fieldDef, bool) {
	for _, def := range dishFields {
		if def.field == f {
			return def, true
		}
	}
	return fieldDef{}, false
}

func fieldByLabel(label string) (fieldDef, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, def := range dishFields {
		for _, l := range def.labels {
			if l == label {
				return def, true
			}
		}
	}
	return fieldDef{}, false
}

// ParseFieldValue parses raw input for a single field into a one-field patch
func ParseFieldValue(f Field, raw string) (models.DishPatch, error) {
	def, ok := lookupField(f)
	if !ok {
		return models.DishPatch{}, &ValidationError{Field: f, Msg: "неизвестное поле"}
	}
	var patch models.DishPatch
	if err := def.apply(raw, &patch); err != nil {
		return models.DishPatch{}, err
	}
	return patch, nil
}

// ParseFieldBlock parses "Label: value" lines into a sparse patch.
// Blank lines are skipped; any other line must name a known field.
func ParseFieldBlock(text string) (models.DishPatch, []Field, error) {
	var patch models.DishPatch
	var fields []Field
	seen := make(map[Field]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			return models.DishPatch{}, nil, &ValidationError{Msg: fmt.Sprintf("строка «%s» должна быть в формате «Поле: значение»", line)}
		}
		def, ok := fieldByLabel(label)
		if !ok {
			return models.DishPatch{}, nil, &ValidationError{Msg: fmt.Sprintf("неизвестное поле «%s»", strings.TrimSpace(label))}
		}
		if seen[def.field] {
			return models.DishPatch{}, nil, &ValidationError{Field: def.field, Msg: "поле указано дважды"}
		}
		if err := def.apply(value, &patch); err != nil {
			return models.DishPatch{}, nil, err
		}
		seen[def.field] = true
		fields = append(fields, def.field)
	}

	if len(fields) == 0 {
		return models.DishPatch{}, nil, &ValidationError{Msg: "не найдено ни одного поля"}
	}
	return patch, fields, nil
}

// looksLikeFieldBlock reports whether text starts with a known "Label:" line
func looksLikeFieldBlock(text string) bool {
	first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	label, _, ok := strings.Cut(first, ":")
	if !ok {
		return false
	}
	_, known := fieldByLabel(label)
	return known
}

func parseText(f Field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", &ValidationError{Field: f, Msg: "значение не может быть пустым"}
	}
	return v, nil
}

func parsePositivePrice(raw string) (models.Price, error) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	price, err := models.ParsePrice(v)
	if err != nil || !price.IsPositive() {
		return models.Price{}, &ValidationError{Field: FieldPrice, Msg: "Неверная цена. Введите число больше 0"}
	}
	return price, nil
}

func parsePositiveInt(f Field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return 0, &ValidationError{Field: f, Msg: "Неверное время. Введите целое число больше 0"}
	}
	return v, nil
}

func parseYesNo(f Field, raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "да", "yes", "true":
		return true, nil
	case "нет", "no", "false":
		return false, nil
	default:
		return false, &ValidationError{Field: f, Msg: "Ответьте «да» или «нет»"}
	}
}

func parseDishID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#")), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Msg: "Введите числовой ID блюда"}
	}
	return id, nil
}
