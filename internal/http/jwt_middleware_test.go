package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/service"
)

func protectedRouter(jwtSvc *service.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuthMiddleware(jwtSvc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant": tenantScope(c, claims), "uid": claims.UserID})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTAuthMiddleware_AllowsValidAccessToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", "", 15*time.Minute)
	token, err := jwtSvc.IssueAccessToken(domain.User{ID: "u1", TenantID: "t1", Role: domain.RoleCandidate})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := performRequest(protectedRouter(jwtSvc), http.MethodGet, "/protected", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_RejectsMissingToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", "", 15*time.Minute)
	rec := performRequest(protectedRouter(jwtSvc), http.MethodGet, "/protected", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_RejectsForeignSignature(t *testing.T) {
	issuer := service.NewJWTService("other-secret", "", 15*time.Minute)
	token, err := issuer.IssueAccessToken(domain.User{ID: "u1", Role: domain.RoleCandidate})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	jwtSvc := service.NewJWTService("secret", "", 15*time.Minute)
	rec := performRequest(protectedRouter(jwtSvc), http.MethodGet, "/protected", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_RejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		UserID:    "u1",
		Role:      domain.RoleCandidate,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "bigfive-core",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	jwtSvc := service.NewJWTService("secret", "", 15*time.Minute)
	rec := performRequest(protectedRouter(jwtSvc), http.MethodGet, "/protected", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", "", 15*time.Minute)
	r := protectedRouter(jwtSvc, RequireAdmin())
	cases := []struct {
		role string
		want int
	}{
		{domain.RoleCandidate, http.StatusForbidden},
		{domain.RoleTenantAdmin, http.StatusOK},
		{domain.RoleSuperAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		token, err := jwtSvc.IssueAccessToken(domain.User{ID: "u1", TenantID: "t1", Role: tc.role})
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		if rec := performRequest(r, http.MethodGet, "/protected", token, nil); rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}
}

func TestTenantScope_OnlySuperAdminOverrides(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", "", 15*time.Minute)
	r := protectedRouter(jwtSvc)

	tenantAdmin, _ := jwtSvc.IssueAccessToken(domain.User{ID: "a", TenantID: "t1", Role: domain.RoleTenantAdmin})
	rec := performRequest(r, http.MethodGet, "/protected?tenant_id=t9", tenantAdmin, nil)
	if want := `"tenant":"t1"`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("tenant admin must stay in own tenant, got %s", rec.Body.String())
	}

	super, _ := jwtSvc.IssueAccessToken(domain.User{ID: "root", Role: domain.RoleSuperAdmin})
	rec = performRequest(r, http.MethodGet, "/protected?tenant_id=t9", super, nil)
	if want := `"tenant":"t9"`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("super admin override ignored, got %s", rec.Body.String())
	}
}
