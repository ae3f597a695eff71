package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterOn(v); err != nil {
		t.Fatalf("register: %v", err)
	}
	return v
}

func strp(s string) *string { return &s }

func TestHHMM(t *testing.T) {
	v := newValidator(t)
	tests := []struct {
		in   string
		want bool
	}{
		{"07:00", true},
		{"23:59", true},
		{"00:00", true},
		{"24:00", false},
		{"7:00", false},
		{"07:60", false},
		{"0700", false},
		{"07:00:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := v.Var(tt.in, "hhmm")
			if got := err == nil; got != tt.want {
				t.Errorf("expected valid=%v, got %v (err: %v)", tt.want, got, err)
			}
		})
	}
}

func TestWeekdays(t *testing.T) {
	v := newValidator(t)
	for _, ok := range [][]int{{0, 1, 6}, {}} {
		if err := v.Var(ok, "weekdays"); err != nil {
			t.Errorf("expected %v to be valid, got %v", ok, err)
		}
	}
	for _, bad := range [][]int{{1, 7}, {-1}} {
		if err := v.Var(bad, "weekdays"); err == nil {
			t.Errorf("expected %v to be rejected", bad)
		}
	}
}

func TestAutomationRuleRequest(t *testing.T) {
	v := newValidator(t)
	req := dto.AutomationRuleRequest{
		Name:          "Diária ABT-01",
		TimeOfDay:     strp("07:00"),
		Weekdays:      []int{1, 3, 5},
		Shift:         "alpha",
		ChecklistType: "daily",
	}
	if err := v.Struct(req); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	// 草稿可以不填时间与星期
	draft := req
	draft.TimeOfDay = nil
	draft.Weekdays = nil
	if err := v.Struct(draft); err != nil {
		t.Errorf("expected valid draft, got %v", err)
	}

	bad := req
	bad.TimeOfDay = strp("7h")
	if err := v.Struct(bad); err == nil {
		t.Error("expected error for time_of_day 7h")
	}

	bad = req
	bad.Weekdays = []int{9}
	if err := v.Struct(bad); err == nil {
		t.Error("expected error for weekday 9")
	}
}

func TestRegister_Idempotent(t *testing.T) {
	for i := 0; i < 2; i++ {
		if err := Register(); err != nil {
			t.Fatalf("register #%d: %v", i+1, err)
		}
	}
}
