package leave_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakeLeaveService struct {
	applyFn    func(ctx context.Context, actorID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error)
	getAllFn   func(ctx context.Context, actorID, role string, q leave.ListQuery) ([]leave.LeaveResponse, int64, error)
	getByIDFn  func(ctx context.Context, actorID, role, id string) (leave.LeaveResponse, error)
	approveFn  func(ctx context.Context, actorID, id, reviewComment string) (leave.LeaveResponse, error)
	rejectFn   func(ctx context.Context, actorID, id, reviewComment string) (leave.LeaveResponse, error)
	withdrawFn func(ctx context.Context, actorID, role, id string) error
	balanceFn  func(ctx context.Context, actorID, role, employeeID string, year int) (leave.BalanceResponse, error)
}

func (f *fakeLeaveService) Apply(ctx context.Context, actorID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
	return f.applyFn(ctx, actorID, req)
}
func (f *fakeLeaveService) GetAll(ctx context.Context, actorID, role string, q leave.ListQuery) ([]leave.LeaveResponse, int64, error) {
	return f.getAllFn(ctx, actorID, role, q)
}
func (f *fakeLeaveService) GetByID(ctx context.Context, actorID, role, id string) (leave.LeaveResponse, error) {
	return f.getByIDFn(ctx, actorID, role, id)
}
func (f *fakeLeaveService) Approve(ctx context.Context, actorID, id, reviewComment string) (leave.LeaveResponse, error) {
	return f.approveFn(ctx, actorID, id, reviewComment)
}
func (f *fakeLeaveService) Reject(ctx context.Context, actorID, id, reviewComment string) (leave.LeaveResponse, error) {
	return f.rejectFn(ctx, actorID, id, reviewComment)
}
func (f *fakeLeaveService) Withdraw(ctx context.Context, actorID, role, id string) error {
	return f.withdrawFn(ctx, actorID, role, id)
}
func (f *fakeLeaveService) Balance(ctx context.Context, actorID, role, employeeID string, year int) (leave.BalanceResponse, error) {
	return f.balanceFn(ctx, actorID, role, employeeID, year)
}

func TestLeaveHandler_Apply(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		actorID := uuid.New().String()

		svc := &fakeLeaveService{
			applyFn: func(ctx context.Context, aid string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
				assert.Equal(t, actorID, aid)
				assert.Equal(t, "VACATION", req.LeaveType)
				return leave.LeaveResponse{
					ID:          uuid.New().String(),
					EmployeeID:  aid,
					LeaveType:   req.LeaveType,
					StartDate:   req.StartDate,
					EndDate:     req.EndDate,
					WorkingDays: 5,
					Reason:      req.Reason,
					Status:      leave.StatusPending,
				}, nil
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"leave_type":"VACATION","start_date":"2027-03-01","end_date":"2027-03-05","reason":"Family trip"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("employee_id", actorID)

		h.Apply(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)

		var got leave.LeaveResponse
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, actorID, got.EmployeeID)
		assert.Equal(t, 5, got.WorkingDays)
		assert.Equal(t, leave.StatusPending, got.Status)
	})

	t.Run("negative missing fields", func(t *testing.T) {
		h := leave.NewHandler(&fakeLeaveService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Apply(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	})

	t.Run("negative overlap returns conflict", func(t *testing.T) {
		svc := &fakeLeaveService{
			applyFn: func(ctx context.Context, actorID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrLeaveOverlap
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"leave_type":"VACATION","start_date":"2027-03-01","end_date":"2027-03-05","reason":"Family trip"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("employee_id", uuid.New().String())

		h.Apply(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.Equal(t, "CONFLICT", env.Error.Code)
	})

	t.Run("negative unknown error hides details", func(t *testing.T) {
		svc := &fakeLeaveService{
			applyFn: func(ctx context.Context, actorID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, errors.New("pq: connection reset")
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"leave_type":"VACATION","start_date":"2027-03-01","end_date":"2027-03-05","reason":"Family trip"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("employee_id", uuid.New().String())

		h.Apply(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
		assert.Equal(t, "An unexpected error occurred", env.Error.Message)
		assert.NotContains(t, env.Error.Message, "pq:")
	})
}

func TestLeaveHandler_Approve(t *testing.T) {
	t.Run("success with empty body", func(t *testing.T) {
		reviewerID := uuid.New().String()
		leaveID := uuid.New().String()

		svc := &fakeLeaveService{
			approveFn: func(ctx context.Context, aid, id, reviewComment string) (leave.LeaveResponse, error) {
				assert.Equal(t, reviewerID, aid)
				assert.Equal(t, leaveID, id)
				assert.Empty(t, reviewComment)
				return leave.LeaveResponse{ID: id, Status: leave.StatusApproved}, nil
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves/"+leaveID+"/approve", nil)
		c.Params = gin.Params{{Key: "id", Value: leaveID}}
		c.Set("employee_id", reviewerID)

		h.Approve(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
	})

	t.Run("negative already decided", func(t *testing.T) {
		svc := &fakeLeaveService{
			approveFn: func(ctx context.Context, actorID, id, reviewComment string) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.AlreadyDecided(leave.StatusApproved)
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves/x/approve", nil)
		c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
		c.Set("employee_id", uuid.New().String())

		h.Approve(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "CONFLICT", env.Error.Code)
		assert.Contains(t, env.Error.Message, "already approved")
	})
}

func TestLeaveHandler_Reject(t *testing.T) {
	t.Run("negative missing comment", func(t *testing.T) {
		h := leave.NewHandler(&fakeLeaveService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves/x/reject", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

		h.Reject(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	})

	t.Run("success", func(t *testing.T) {
		leaveID := uuid.New().String()
		svc := &fakeLeaveService{
			rejectFn: func(ctx context.Context, actorID, id, reviewComment string) (leave.LeaveResponse, error) {
				assert.Equal(t, "Team is at capacity then", reviewComment)
				return leave.LeaveResponse{ID: id, Status: leave.StatusRejected}, nil
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"review_comment":"Team is at capacity then"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves/"+leaveID+"/reject", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "id", Value: leaveID}}
		c.Set("employee_id", uuid.New().String())

		h.Reject(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLeaveHandler_Withdraw(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		leaveID := uuid.New().String()
		svc := &fakeLeaveService{
			withdrawFn: func(ctx context.Context, actorID, role, id string) error {
				assert.Equal(t, leaveID, id)
				return nil
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodDelete, "/leaves/"+leaveID, nil)
		c.Params = gin.Params{{Key: "id", Value: leaveID}}
		c.Set("employee_id", uuid.New().String())
		c.Set("role", "EMPLOYEE")

		h.Withdraw(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
	})

	t.Run("negative already decided", func(t *testing.T) {
		svc := &fakeLeaveService{
			withdrawFn: func(ctx context.Context, actorID, role, id string) error {
				return leaveerrors.CannotWithdraw(leave.StatusApproved)
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodDelete, "/leaves/x", nil)
		c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

		h.Withdraw(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestLeaveHandler_GetBalance(t *testing.T) {
	t.Run("success with year query", func(t *testing.T) {
		actorID := uuid.New().String()
		svc := &fakeLeaveService{
			balanceFn: func(ctx context.Context, aid, role, employeeID string, year int) (leave.BalanceResponse, error) {
				assert.Equal(t, actorID, aid)
				assert.Equal(t, 2026, year)
				return leave.BalanceResponse{
					EmployeeID: aid,
					Year:       year,
					Total:      20,
					Used:       5,
					Available:  15,
				}, nil
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leaves/balance?year=2026", nil)
		c.Set("employee_id", actorID)
		c.Set("role", "EMPLOYEE")

		h.GetBalance(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)

		var got leave.BalanceResponse
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, 15, got.Available)
	})
}
