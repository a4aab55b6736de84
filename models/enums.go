package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type UserRole string

const (
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSupervisor UserRole = "SUPERVISOR"
	UserRoleAgent      UserRole = "AGENT"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleSupervisor, UserRoleAgent:
		return true
	}
	return false
}

// CanManageTeam reports whether the role may read other users' metrics and assign work.
func (r UserRole) CanManageTeam() bool {
	return r == UserRoleAdmin || r == UserRoleSupervisor
}

// ManagementTray is the workflow bucket a credit sits in.
type ManagementTray string

const (
	ManagementTrayPending    ManagementTray = "PENDING"
	ManagementTrayInProgress ManagementTray = "IN_PROGRESS"
	ManagementTrayManaged    ManagementTray = "MANAGED"
)

func (t ManagementTray) IsValid() bool {
	switch t {
	case ManagementTrayPending, ManagementTrayInProgress, ManagementTrayManaged:
		return true
	}
	return false
}

func (t *ManagementTray) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, t, "management tray")
}

// ManagementState is the outcome of one contact attempt.
type ManagementState string

const (
	ManagementStateEffective         ManagementState = "EFFECTIVE"
	ManagementStatePaymentPromise    ManagementState = "PAYMENT_PROMISE"
	ManagementStatePaymentCommitment ManagementState = "PAYMENT_COMMITMENT"
	ManagementStateNoContact         ManagementState = "NO_CONTACT"
	ManagementStateWrongNumber       ManagementState = "WRONG_NUMBER"
	ManagementStateRefused           ManagementState = "REFUSED"
	ManagementStateCallback          ManagementState = "CALLBACK"
	ManagementStateMessageLeft       ManagementState = "MESSAGE_LEFT"
	ManagementStateOther             ManagementState = "OTHER"
)

// EffectiveManagementStates are the outcomes counted as an effective contact.
var EffectiveManagementStates = []ManagementState{
	ManagementStateEffective,
	ManagementStatePaymentPromise,
	ManagementStatePaymentCommitment,
}

func (s ManagementState) IsEffective() bool {
	for _, e := range EffectiveManagementStates {
		if s == e {
			return true
		}
	}
	return false
}

func (s ManagementState) IsValid() bool {
	switch s {
	case ManagementStateEffective, ManagementStatePaymentPromise, ManagementStatePaymentCommitment,
		ManagementStateNoContact, ManagementStateWrongNumber, ManagementStateRefused,
		ManagementStateCallback, ManagementStateMessageLeft, ManagementStateOther:
		return true
	}
	return false
}

func (s *ManagementState) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, "management state")
}

type CallChannel string

const (
	CallChannelPhone    CallChannel = "PHONE"
	CallChannelMobile   CallChannel = "MOBILE"
	CallChannelWhatsApp CallChannel = "WHATSAPP"
	CallChannelOther    CallChannel = "OTHER"
)

func (c CallChannel) IsValid() bool {
	switch c {
	case CallChannelPhone, CallChannelMobile, CallChannelWhatsApp, CallChannelOther:
		return true
	}
	return false
}

func (c *CallChannel) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, c, "call channel")
}

type CallDirection string

const (
	CallDirectionOutbound CallDirection = "OUTBOUND"
	CallDirectionInbound  CallDirection = "INBOUND"
)

func (d CallDirection) IsValid() bool {
	return d == CallDirectionOutbound || d == CallDirectionInbound
}

func (d *CallDirection) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, d, "call direction")
}

type AgreementStatus string

const (
	AgreementStatusActive    AgreementStatus = "ACTIVE"
	AgreementStatusCompleted AgreementStatus = "COMPLETED"
	AgreementStatusBroken    AgreementStatus = "BROKEN"
	AgreementStatusCancelled AgreementStatus = "CANCELLED"
)

func (s AgreementStatus) IsValid() bool {
	switch s {
	case AgreementStatusActive, AgreementStatusCompleted, AgreementStatusBroken, AgreementStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo allows only ACTIVE to move to a closing status.
func (s AgreementStatus) CanTransitionTo(next AgreementStatus) bool {
	if s != AgreementStatusActive {
		return false
	}
	switch next {
	case AgreementStatusCompleted, AgreementStatusBroken, AgreementStatusCancelled:
		return true
	}
	return false
}

func (s *AgreementStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, "agreement status")
}

type CondonationStatus string

const (
	CondonationStatusPending  CondonationStatus = "PENDING"
	CondonationStatusApproved CondonationStatus = "APPROVED"
	CondonationStatusRejected CondonationStatus = "REJECTED"
)

func (s CondonationStatus) IsValid() bool {
	switch s {
	case CondonationStatusPending, CondonationStatusApproved, CondonationStatusRejected:
		return true
	}
	return false
}

type ExpenseType string

const (
	ExpenseTypeLegal      ExpenseType = "LEGAL"
	ExpenseTypeCollection ExpenseType = "COLLECTION"
	ExpenseTypeOther      ExpenseType = "OTHER"
)

func (t ExpenseType) IsValid() bool {
	switch t {
	case ExpenseTypeLegal, ExpenseTypeCollection, ExpenseTypeOther:
		return true
	}
	return false
}

func (t *ExpenseType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, t, "expense type")
}

type validEnum interface {
	~string
	IsValid() bool
}

func unmarshalEnum[T validEnum](b []byte, dest *T, name string) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New(name + " must be string")
	}
	v := T(str)
	if !v.IsValid() {
		return fmt.Errorf("invalid %s: %q", name, str)
	}
	*dest = v
	return nil
}
