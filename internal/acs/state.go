package acs

import (
	"fmt"

	"github.com/magma/magma-sub003/pkg/tr069"
)

// StateID identifies a state of the session machine
type StateID int

// StateNone means "no transition"
const StateNone StateID = 0

const (
	StateWaitInform StateID = iota + 1
	StateWaitEmpty
	StateCheckOptionalParams
	StateGetTransientParams
	StateGetParams
	StateGetObjectParams
	StateDeleteObjects
	StateAddObjects
	StateSetParams
	StateWaitSetParams
	StateVerifyParams
	StateWaitVerifyParams
	StateEndSession
	StateSendReboot
	StateWaitRebootResponse
	StateWaitInformMReboot
	StateDisableAdmin
	StateWaitDisableAdmin
	StateEnableAdmin
	StateWaitEnableAdmin
	StateUnexpectedFault
)

var stateNames = map[StateID]string{
	StateNone:                "none",
	StateWaitInform:          "wait_inform",
	StateWaitEmpty:           "wait_empty",
	StateCheckOptionalParams: "check_optional_params",
	StateGetTransientParams:  "get_transient_params",
	StateGetParams:           "get_params",
	StateGetObjectParams:     "get_obj_params",
	StateDeleteObjects:       "delete_objs",
	StateAddObjects:          "add_objs",
	StateSetParams:           "set_params",
	StateWaitSetParams:       "wait_set_params",
	StateVerifyParams:        "check_get_params",
	StateWaitVerifyParams:    "check_wait_get_params",
	StateEndSession:          "end_session",
	StateSendReboot:          "reboot",
	StateWaitRebootResponse:  "wait_reboot",
	StateWaitInformMReboot:   "wait_post_reboot_inform",
	StateDisableAdmin:        "disable_admin",
	StateWaitDisableAdmin:    "wait_disable_admin",
	StateEnableAdmin:         "enable_admin",
	StateWaitEnableAdmin:     "wait_enable_admin",
	StateUnexpectedFault:     "unexpected_fault",
}

func (s StateID) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ReadResult is the outcome of offering a message to a state
type ReadResult struct {
	Handled bool
	Next    StateID
}

// ProduceResult is the message a state sends and an optional transition
// taken after sending. A nil Msg with a Next hands production to Next.
type ProduceResult struct {
	Msg  tr069.Message
	Next StateID
}

// State is one exchange of a session
type State interface {
	Read(m *Machine, msg tr069.Message) ReadResult
	Produce(m *Machine) ProduceResult
	// Targets lists every state this state can transition to
	Targets() []StateID
}

// Enterer is implemented by states that reset per-visit data
type Enterer interface {
	Enter(m *Machine)
}

// PlanRouting picks the state following a full read from the reconcile plan
type PlanRouting struct {
	WhenApply        StateID
	WhenInSync       StateID
	WhenUnconfigured StateID
}

func (r PlanRouting) targets() []StateID {
	return []StateID{r.WhenApply, r.WhenInSync, r.WhenUnconfigured}
}

func handled() ReadResult {
	return ReadResult{Handled: true}
}

func handledNext(next StateID) ReadResult {
	return ReadResult{Handled: true, Next: next}
}

func produce(msg tr069.Message, next StateID) ProduceResult {
	return ProduceResult{Msg: msg, Next: next}
}
