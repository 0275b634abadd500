// Package xectest provides a mock of the [xec.Execer] interface for tests.
package xectest

import (
	"os/exec"
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockExecer is a mock of the xec.Execer interface, hand-written in the
// shape mockgen would generate since the real mock is not checked into the
// repo (see the go:generate directive on xec.Execer).
type MockExecer struct {
	ctrl     *gomock.Controller
	recorder *MockExecerMockRecorder
}

// MockExecerMockRecorder is the mock recorder for MockExecer.
type MockExecerMockRecorder struct {
	mock *MockExecer
}

// NewMockExecer creates a new mock instance.
func NewMockExecer(ctrl *gomock.Controller) *MockExecer {
	mock := &MockExecer{ctrl: ctrl}
	mock.recorder = &MockExecerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockExecer) EXPECT() *MockExecerMockRecorder {
	return m.recorder
}

func (m *MockExecer) Run(cmd *exec.Cmd) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run", cmd)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockExecerMockRecorder) Run(cmd any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockExecer)(nil).Run), cmd)
}

func (m *MockExecer) Output(cmd *exec.Cmd) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Output", cmd)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockExecerMockRecorder) Output(cmd any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Output", reflect.TypeOf((*MockExecer)(nil).Output), cmd)
}

func (m *MockExecer) Start(cmd *exec.Cmd) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Start", cmd)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockExecerMockRecorder) Start(cmd any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Start", reflect.TypeOf((*MockExecer)(nil).Start), cmd)
}

func (m *MockExecer) Wait(cmd *exec.Cmd) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Wait", cmd)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockExecerMockRecorder) Wait(cmd any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Wait", reflect.TypeOf((*MockExecer)(nil).Wait), cmd)
}

func (m *MockExecer) Kill(cmd *exec.Cmd) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Kill", cmd)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockExecerMockRecorder) Kill(cmd any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Kill", reflect.TypeOf((*MockExecer)(nil).Kill), cmd)
}
