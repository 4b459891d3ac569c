package apperror

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeRejectedOperation, "nothing to cancel"),
			expected: "[REJECTED_OPERATION] nothing to cancel",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeOutOfRange, "node 9 out of range [0,4)", "source"),
			expected: "[OUT_OF_RANGE] node 9 out of range [0,4) (field: source)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestError_IsSentinel(t *testing.T) {
	wrapped := fmt.Errorf("phase 3: %w", ErrCanceled)

	if !errors.Is(wrapped, ErrCanceled) {
		t.Error("errors.Is should match the sentinel through fmt wrapping")
	}
	if errors.Is(wrapped, ErrTimeout) {
		t.Error("errors.Is should not match a different sentinel")
	}
}

func TestError_GRPCStatus(t *testing.T) {
	tests := []struct {
		name         string
		code         ErrorCode
		expectedCode codes.Code
	}{
		{"invalid argument", CodeInvalidArgument, codes.InvalidArgument},
		{"out of range", CodeOutOfRange, codes.OutOfRange},
		{"rejected", CodeRejectedOperation, codes.FailedPrecondition},
		{"nothing pending", CodeNothingPending, codes.FailedPrecondition},
		{"timeout", CodeTimeout, codes.DeadlineExceeded},
		{"canceled", CodeCanceled, codes.Canceled},
		{"consistency", CodeConsistencyViolation, codes.DataLoss},
		{"balance", CodeBalanceViolation, codes.DataLoss},
		{"internal", CodeInternal, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New(tt.code, "test message").GRPCStatus()
			if st.Code() != tt.expectedCode {
				t.Errorf("GRPCStatus().Code() = %v, want %v", st.Code(), tt.expectedCode)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	if got := New(CodeInternal, "x").Severity; got != SeverityError {
		t.Errorf("New severity = %v, want error", got)
	}
	if got := NewWarning(CodeInternal, "x").Severity; got != SeverityWarning {
		t.Errorf("NewWarning severity = %v, want warning", got)
	}
	if got := NewCritical(CodeConsistencyViolation, "x").Severity; got != SeverityCritical {
		t.Errorf("NewCritical severity = %v, want critical", got)
	}

	err := New(CodeInvalidOption, "bad").WithDetails("option", "strategy").WithField("strategy")
	if err.Details["option"] != "strategy" || err.Field != "strategy" {
		t.Errorf("builders did not apply: %+v", err)
	}
}

func TestIsAndCode(t *testing.T) {
	err := fmt.Errorf("driver: %w", NewCritical(CodeBrokenPath, "pred chain loops"))

	if !Is(err, CodeBrokenPath) {
		t.Error("Is should find the code through wrapping")
	}
	if Code(err) != CodeBrokenPath {
		t.Errorf("Code() = %v, want %v", Code(err), CodeBrokenPath)
	}
	if !IsCritical(err) {
		t.Error("IsCritical should be true")
	}
	if Code(errors.New("plain")) != CodeInternal {
		t.Error("foreign errors map to CodeInternal")
	}
}

func TestToGRPCAndBack(t *testing.T) {
	if ToGRPC(nil) != nil {
		t.Fatal("ToGRPC(nil) must be nil")
	}

	grpcErr := ToGRPC(New(CodeOutOfRange, "arc 77"))
	st, ok := status.FromError(grpcErr)
	if !ok || st.Code() != codes.OutOfRange {
		t.Fatalf("ToGRPC() = %v", grpcErr)
	}

	back := FromGRPC(grpcErr)
	if back.Code != CodeOutOfRange || back.Message != "arc 77" {
		t.Errorf("FromGRPC() = %+v", back)
	}

	plain := ToGRPC(errors.New("boom"))
	if st, _ := status.FromError(plain); st.Code() != codes.Internal {
		t.Errorf("plain error code = %v, want Internal", st.Code())
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	if !v.IsValid() || v.First() != nil {
		t.Fatal("empty collection must be valid")
	}

	v.AddWarning(CodeIterationLimit, "close to limit")
	if !v.IsValid() {
		t.Error("warnings do not invalidate")
	}

	v.Add(New(CodeConservationViolation, "node 4"))
	v.AddError(CodeBalanceViolation, "edge 2")

	if v.IsValid() || len(v.ErrorMessages()) != 2 {
		t.Errorf("expected 2 errors, got %v", v.ErrorMessages())
	}
	if v.First().Code != CodeConservationViolation {
		t.Errorf("First() = %v", v.First().Code)
	}
}
