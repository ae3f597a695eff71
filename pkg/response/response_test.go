package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 1},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := totalPages(tt.total, tt.pageSize); got != tt.want {
			t.Errorf("totalPages(%d, %d): 期望 %d，实际 %d", tt.total, tt.pageSize, tt.want, got)
		}
	}
}

func TestOKPage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OKPage(c, []string{"a", "b"}, 45, 2, 20)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			List       []string   `json:"list"`
			Pagination Pagination `json:"pagination"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Code != CodeOK || len(resp.Data.List) != 2 {
		t.Errorf("期望 code=0 且 2 条记录，实际 code=%d 记录 %d", resp.Code, len(resp.Data.List))
	}
	if resp.Data.Pagination.TotalPages != 3 {
		t.Errorf("期望 3 页，实际 %d", resp.Data.Pagination.TotalPages)
	}
}

func TestTooManyRequests_RetryAfter(t *testing.T) {
	tests := []struct {
		retryAfter time.Duration
		want       string
	}{
		{0, ""},
		{1500 * time.Millisecond, "2"},
		{time.Minute, "60"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		TooManyRequests(c, "慢一点", tt.retryAfter)

		if w.Code != http.StatusTooManyRequests {
			t.Errorf("期望 429，实际 %d", w.Code)
		}
		if got := w.Header().Get("Retry-After"); got != tt.want {
			t.Errorf("retryAfter=%s: 期望 Retry-After=%q，实际 %q", tt.retryAfter, tt.want, got)
		}
	}
}

func TestPayloadTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	PayloadTooLarge(c)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusRequestEntityTooLarge || resp.Code != CodeBodyTooLarge {
		t.Errorf("期望 413/10005，实际 %d/%d", w.Code, resp.Code)
	}
}
