package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"autoservice/internal/domain"
)

func TestPolicy_RoleMatrix(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	client := Principal{UserID: "c", Roles: []domain.Role{domain.RoleClient}}
	master := Principal{UserID: "m", Roles: []domain.Role{domain.RoleMaster}}
	admin := Principal{UserID: "a", Roles: []domain.Role{domain.RoleAdmin}}

	cases := []struct {
		who  Principal
		act  Action
		want bool
	}{
		{client, AppointmentCreate, true},
		{client, AppointmentUpdateStatus, false},
		{client, AppointmentAssignMaster, false},
		{client, OrderUpdateStatus, false},
		{client, OrderAddItem, true},
		{client, ProductManage, false},
		{master, AppointmentUpdateStatus, true},
		{master, AppointmentCreate, false},
		{master, OrderCreate, false},
		{admin, AppointmentAssignMaster, true},
		{admin, OrderUpdateStatus, true},
		{admin, ProductManage, true},
		{Principal{}, AppointmentRead, false},
	}
	for _, tc := range cases {
		d := p.Authorize(tc.who, tc.act)
		if d.Allowed != tc.want {
			t.Fatalf("%v %s: got %v (%s)", tc.who.Roles, tc.act, d.Allowed, d.Reason)
		}
		if !d.Allowed && d.Reason == "" {
			t.Fatalf("deny without reason for %s", tc.act)
		}
	}

	both := Principal{UserID: "x", Roles: []domain.Role{domain.RoleClient, domain.RoleMaster}}
	if !p.Authorize(both, AppointmentUpdateStatus).Allowed {
		t.Fatalf("any matching role must allow")
	}
	if err := Require(p, client, ProductManage); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestIssuer_RoundTripAndExpiry(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, err := iss.Issue(Principal{UserID: "u1", Roles: []domain.Role{domain.RoleMaster}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := iss.Parse(tok)
	if err != nil || p.UserID != "u1" || !p.Has(domain.RoleMaster) {
		t.Fatalf("parse: %v %+v", err, p)
	}

	if _, err := NewIssuer("other", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret must fail")
	}

	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token must fail")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := NewIssuer("secret", time.Hour)
	r := gin.New()
	r.GET("/me", Middleware(iss), func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		fromCtx, _ := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": p.UserID, "ctx": fromCtx.UserID})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	tok, _ := iss.Issue(Principal{UserID: "u1", Roles: []domain.Role{domain.RoleClient}})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"ctx":"u1","id":"u1"}` {
		t.Fatalf("unexpected body %s", body)
	}
}
