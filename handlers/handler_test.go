package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gainwell-gia/s2t_backend/utils"
	"github.com/gin-gonic/gin"
)

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", utils.ValidationErrorf("bad input"), 400},
		{"not found", utils.NotFoundErrorf("no such row"), 404},
		{"conflict", utils.ConflictErrorf("already mapped"), 409},
		{"gateway", utils.GatewayError(errors.New("upstream 500")), 502},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestParamId(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "17"}}
	id, ok := paramId(c)
	if !ok || id != 17 {
		t.Fatalf("paramId(17) = %d, %v", id, ok)
	}

	for _, bad := range []string{"0", "-3", "abc", ""} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: bad}}
		if _, ok := paramId(c); ok {
			t.Errorf("paramId(%q) accepted", bad)
		}
		if w.Code != 400 {
			t.Errorf("paramId(%q) status = %d", bad, w.Code)
		}
	}
}

func TestQueryBoolPtr(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?validated=true&active=0&junk=maybe", nil)

	if v := queryBoolPtr(c, "validated"); v == nil || !*v {
		t.Fatalf("validated should parse true")
	}
	if v := queryBoolPtr(c, "active"); v == nil || *v {
		t.Fatalf("active=0 should parse false")
	}
	if v := queryBoolPtr(c, "junk"); v != nil {
		t.Fatalf("junk value should yield nil")
	}
	if v := queryBoolPtr(c, "missing"); v != nil {
		t.Fatalf("absent param should yield nil")
	}
}
