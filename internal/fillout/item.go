package fillout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// ── 检查项校验错误 ──

var (
	ErrNoteRequired    = errors.New("状态为“有异常”的检查项必须填写说明")
	ErrValueRequired   = errors.New("必填检查项未填写")
	ErrInvalidNumber   = errors.New("数值型检查项只能填写数字")
	ErrPhotoRequired   = errors.New("必填拍照项至少需要一张照片")
	ErrInvalidRating   = errors.New("评分必须为 1-5 的整数")
	ErrUnknownItemKind = errors.New("未知的检查项类型")
)

// ItemError 指出具体哪个检查项未通过校验
type ItemError struct {
	Index int
	Name  string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("检查项 #%d「%s」: %v", e.Index+1, e.Name, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ── 检查项类型（封闭变体） ──

// ItemKind 检查项类型。未导出的 validate 方法使变体集合仅限本包定义的五种。
type ItemKind interface {
	Type() model.ItemType
	validate(it *Item) error
}

type (
	CheckboxKind struct{}
	TextKind     struct{}
	NumberKind   struct{}
	PhotoKind    struct{}
	RatingKind   struct{}
)

func (CheckboxKind) Type() model.ItemType { return model.ItemTypeCheckbox }
func (TextKind) Type() model.ItemType     { return model.ItemTypeText }
func (NumberKind) Type() model.ItemType   { return model.ItemTypeNumber }
func (PhotoKind) Type() model.ItemType    { return model.ItemTypePhoto }
func (RatingKind) Type() model.ItemType   { return model.ItemTypeRating }

func (CheckboxKind) validate(*Item) error { return nil }

func (TextKind) validate(it *Item) error {
	if it.Required && strings.TrimSpace(it.Value) == "" {
		return ErrValueRequired
	}
	return nil
}

func (NumberKind) validate(it *Item) error {
	v := strings.TrimSpace(it.Value)
	if v == "" {
		if it.Required {
			return ErrValueRequired
		}
		return nil
	}
	if _, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err != nil {
		return ErrInvalidNumber
	}
	return nil
}

func (PhotoKind) validate(it *Item) error {
	if it.Required && len(it.Photos) == 0 {
		return ErrPhotoRequired
	}
	return nil
}

func (RatingKind) validate(it *Item) error {
	v := strings.TrimSpace(it.Value)
	if v == "" {
		if it.Required {
			return ErrValueRequired
		}
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 5 {
		return ErrInvalidRating
	}
	return nil
}

// KindOf 将存储中的类型字符串映射为变体
func KindOf(t model.ItemType) (ItemKind, error) {
	switch t {
	case model.ItemTypeCheckbox, "":
		return CheckboxKind{}, nil
	case model.ItemTypeText:
		return TextKind{}, nil
	case model.ItemTypeNumber:
		return NumberKind{}, nil
	case model.ItemTypePhoto:
		return PhotoKind{}, nil
	case model.ItemTypeRating:
		return RatingKind{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownItemKind, t)
}

// ── 检查项 ──

// Item 会话中的一个检查项（工作副本）
type Item struct {
	Name          string
	Category      string
	CategoryIndex int
	Kind          ItemKind
	Required      bool
	ImageURL      string
	Status        model.ItemStatus
	Note          string
	Value         string
	Photos        []model.PhotoAttachment
}

// Validate 有异常必须有说明，然后按类型校验
func (it *Item) Validate() error {
	if it.Status == model.ItemWithAlteration && strings.TrimSpace(it.Note) == "" {
		return ErrNoteRequired
	}
	return it.Kind.validate(it)
}

func (it Item) clone() Item {
	if it.Photos != nil {
		it.Photos = append([]model.PhotoAttachment(nil), it.Photos...)
	}
	return it
}
