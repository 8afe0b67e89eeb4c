package middleware

import (
	"context"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/util"
	"edu_bridge_backend/pkg/authgateway"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type tokenGateway map[string]*authgateway.Identity

func (g tokenGateway) Verify(ctx context.Context, token string) (*authgateway.Identity, error) {
	if identity, ok := g[token]; ok {
		return identity, nil
	}
	return nil, util.ErrUnauthorized
}

func (g tokenGateway) SignUp(ctx context.Context, in authgateway.SignUpInput) (*authgateway.Identity, *authgateway.Session, error) {
	return nil, nil, util.ErrNotSupported
}

func (g tokenGateway) SignIn(ctx context.Context, email, password string) (*authgateway.Identity, *authgateway.Session, error) {
	return nil, nil, util.ErrNotSupported
}

type activityRecorder struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
}

func (r *activityRecorder) UpdateLastSeen(userID string) error {
	r.mu.Lock()
	r.seen = append(r.seen, userID)
	r.mu.Unlock()
	close(r.done)
	return nil
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gateway := tokenGateway{"good": {ID: "U1", Email: "u1@example.org", Role: model.Student}}
	activity := &activityRecorder{done: make(chan struct{})}

	router := gin.New()
	router.GET("/me", AuthMiddleware(gateway), ActivityMiddleware(activity), func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		c.String(http.StatusOK, user.UserID)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"good token", "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
		if tc.want == http.StatusOK && w.Body.String() != "U1" {
			t.Fatalf("%s: handler saw user %q", tc.name, w.Body.String())
		}
	}

	select {
	case <-activity.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("last_seen was never updated")
	}
	activity.mu.Lock()
	defer activity.mu.Unlock()
	if len(activity.seen) != 1 || activity.seen[0] != "U1" {
		t.Fatalf("unexpected activity: %v", activity.seen)
	}
}
