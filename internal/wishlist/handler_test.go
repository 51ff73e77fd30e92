package wishlist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/auth"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
	"github.com/valeevte/PriceLedger/internal/products"
)

type fakeProducts map[string]*products.Product

func (f fakeProducts) GetProductByID(_ context.Context, id string) (*products.Product, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("Product not found")
}

type fixture struct {
	router   *gin.Engine
	repo     *memRepo
	resolver *fakeResolver
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{repo: newMemRepo(), resolver: newResolver()}
	m := newMonitor(f.resolver, f.repo, &recordingNotifier{})
	svc := NewService(f.repo, m, fakeProducts{"p1": {ID: "p1", Name: "Milk", Status: lifecycle.Active, IsActive: true}})
	svc.now = func() time.Time { return now }
	h := NewHandler(svc, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set(auth.UserContextKey, u)
		}
	})
	r.GET("/wishlist", h.List)
	r.GET("/wishlist/stats", h.Stats)
	r.GET("/wishlist/:id", h.Get)
	r.POST("/wishlist", h.Create)
	r.PUT("/wishlist/:id", h.Update)
	r.DELETE("/wishlist/:id", h.Delete)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestWishlistEndToEnd(t *testing.T) {
	f := newFixture()
	f.resolver.set("p1", "6.50")

	w := f.do(http.MethodPost, "/wishlist", `{"productId":"p1","productName":"Milk","targetPrice":6.00}`, "u1")
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID
	assert.Equal(t, "MYR", created.Data.Currency)
	assert.Equal(t, []string{}, created.Data.PreferredStores)
	assert.Nil(t, created.Data.LastNotifiedAt)

	w = f.do(http.MethodGet, "/wishlist/"+id, "", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isTargetReached":false`)

	f.resolver.set("p1", "5.80")
	w = f.do(http.MethodGet, "/wishlist/"+id, "", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Data struct {
			IsTargetReached bool   `json:"isTargetReached"`
			PotentialSaving string `json:"potentialSaving"`
			Product         *products.Product
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.True(t, detail.Data.IsTargetReached)
	assert.Equal(t, "0.2", detail.Data.PotentialSaving)

	w = f.do(http.MethodGet, "/wishlist/stats", "", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"targetReached":1`)
}

func TestWishlistOwnership(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/wishlist", `{"productId":"p1","productName":"Milk","targetPrice":"4.00"}`, "owner")
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/wishlist/"+id, "", "intruder").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, "/wishlist/"+id, `{"notes":"x"}`, "intruder").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodDelete, "/wishlist/"+id, "", "intruder").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/wishlist/nope", "", "owner").Code)

	w = f.do(http.MethodPut, "/wishlist/"+id, `{"targetPrice":"3.50","notes":"weekly"}`, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"notes":"weekly"`)

	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/wishlist/"+id, "", "owner").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/wishlist/"+id, "", "owner").Code)

	w = f.do(http.MethodGet, "/wishlist", "", "owner")
	assert.JSONEq(t, `{"success":true,"data":[],"count":0}`, w.Body.String())
}

func TestWishlistValidation(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/wishlist", `{"productId":"p1","productName":"Milk"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields")

	w = f.do(http.MethodPost, "/wishlist", `{"productId":"p1","productName":"Milk","targetPrice":-2}`, "u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/wishlist", "", "").Code)
}

func TestStatsEmpty(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/wishlist/stats", "", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"totalItems":0,"targetReached":0,"averageTargetPrice":"0","totalPotentialSavings":"0"}}`, w.Body.String())
}
