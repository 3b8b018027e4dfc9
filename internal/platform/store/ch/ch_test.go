package ch

import (
	"context"
	"testing"
)

// TestOpen_NoAddrs rejects an empty addr list before dialing
func TestOpen_NoAddrs(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{})
	if err == nil {
		t.Fatalf("Open expected error for empty addrs")
	}
}

// TestInsert_NilClient fails fast instead of panicking
func TestInsert_NilClient(t *testing.T) {
	t.Parallel()

	var cl *CH
	if err := cl.Insert(context.Background(), "t", [][]any{{1}}); err == nil {
		t.Fatalf("Insert expected error on nil client")
	}

	cl = &CH{}
	if err := cl.Insert(context.Background(), "t", [][]any{{1}}); err == nil {
		t.Fatalf("Insert expected error on unopened client")
	}
}

// TestInsert_EmptyRowsIsNoOp never touches the connection
func TestInsert_EmptyRowsIsNoOp(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if err := cl.Insert(context.Background(), "t", nil); err != nil {
		t.Fatalf("Insert on empty rows: %v", err)
	}
}

// TestExec_NilClient fails fast instead of panicking
func TestExec_NilClient(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if err := cl.Exec(context.Background(), "create table t (n Int32) engine = Memory"); err == nil {
		t.Fatalf("Exec expected error on unopened client")
	}
}

// TestQuery_NilClient fails fast instead of panicking
func TestQuery_NilClient(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if _, err := cl.Query(context.Background(), "SELECT 1"); err == nil {
		t.Fatalf("Query expected error on unopened client")
	}
}

// TestClose_NilSafe is a no op without a connection
func TestClose_NilSafe(t *testing.T) {
	t.Parallel()

	var cl *CH
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	cl = &CH{}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
