package subscription

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/KAsare1/subscriptions-server/cmd/utils"
	"github.com/KAsare1/subscriptions-server/db"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testOwner    = "owner-1"
	anotherOwner = "owner-2"
)

// newTestDB returns a migrated in-memory database with two users.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(db.SQLiteDSN(":memory:")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb, zap.NewNop()))
	require.NoError(t, gdb.Create(&models.User{ID: testOwner, Email: "owner1@example.com"}).Error)
	require.NoError(t, gdb.Create(&models.User{ID: anotherOwner, Email: "owner2@example.com"}).Error)
	return gdb
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func strPtr(s string) *string { return &s }

// insert stores a subscription directly, bypassing validation.
func insert(t *testing.T, gdb *gorm.DB, owner, name, next string, mutate ...func(*models.Subscription)) models.Subscription {
	t.Helper()
	sub := models.Subscription{
		UserID:        owner,
		Name:          name,
		Price:         decimal.NewFromInt(10000),
		Currency:      models.CurrencyKRW,
		BillingCycle:  models.BillingMonthly,
		IntervalCount: 1,
		NextBillingAt: day(next),
	}
	for _, m := range mutate {
		m(&sub)
	}
	require.NoError(t, gdb.Create(&sub).Error)
	return sub
}

func newTestRouter(gdb *gorm.DB, owner string) *mux.Router {
	router := mux.NewRouter()
	router.Use(utils.OwnerMiddleware(owner))
	NewSubscriptionHandler(gdb, zap.NewNop()).RegisterRoutes(router)
	return router
}

func doRequest(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Details []struct {
			Path    string `json:"path"`
			Message string `json:"message"`
		} `json:"details"`
		Field string `json:"field"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
