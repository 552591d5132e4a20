package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	other := errors.New("syntax error")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: sql.ErrNoRows, want: common.ErrorNotFound},
		{name: "deadline", in: fmt.Errorf("query: %w", context.DeadlineExceeded), want: common.ErrTransient},
		{name: "conn done", in: sql.ErrConnDone, want: common.ErrTransient},
		{name: "connection exception", in: &pgconn.PgError{Code: "08006"}, want: common.ErrTransient},
		{name: "serialization failure", in: &pgconn.PgError{Code: "40001"}, want: common.ErrTransient},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505"}, want: common.ErrorAlreadyExists},
		{name: "malformed uuid", in: &pgconn.PgError{Code: "22P02"}, want: common.ErrorNotFound},
		{name: "missing referenced row", in: &pgconn.PgError{Code: "23503"}, want: common.ErrorNotFound},
		{name: "other", in: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.in, "original error must stay in the chain")
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, Classify(nil))
}

func TestIsTransient_CheckViolationIsPermanent(t *testing.T) {
	assert.False(t, IsTransient(&pgconn.PgError{Code: "23514"}))
}
