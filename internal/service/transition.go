package service

import (
	"fmt"
	"strings"

	"sipelan-service/internal/model"
)

const (
	PolicyPermissive = "permissive"
	PolicyStrict     = "strict"
)

// TransitionPolicy decides whether a complaint may move between two statuses.
type TransitionPolicy interface {
	Allow(from, to model.ComplaintStatus) bool
	Name() string
}

// PermissivePolicy accepts every move between known statuses, so admins can
// correct mistakes by stepping back.
type PermissivePolicy struct{}

func (PermissivePolicy) Allow(from, to model.ComplaintStatus) bool {
	return to.Valid()
}

func (PermissivePolicy) Name() string { return PolicyPermissive }

// StrictPolicy only accepts the edges of the routing workflow. Staying in
// the same status is always allowed.
type StrictPolicy struct {
	edges map[model.ComplaintStatus][]model.ComplaintStatus
}

func NewStrictPolicy() StrictPolicy {
	return StrictPolicy{edges: map[model.ComplaintStatus][]model.ComplaintStatus{
		model.ComplaintStatusMasuk: {
			model.ComplaintStatusTerverifikasi,
			model.ComplaintStatusTerdisposisi,
		},
		model.ComplaintStatusTerverifikasi: {
			model.ComplaintStatusTerdisposisi,
		},
		model.ComplaintStatusTerdisposisi: {
			model.ComplaintStatusTindakLanjut,
			model.ComplaintStatusSelesai,
		},
		model.ComplaintStatusTindakLanjut: {
			model.ComplaintStatusTerdisposisi,
			model.ComplaintStatusSelesai,
		},
	}}
}

func (p StrictPolicy) Allow(from, to model.ComplaintStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range p.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (StrictPolicy) Name() string { return PolicyStrict }

func NewTransitionPolicy(name string) (TransitionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyPermissive:
		return PermissivePolicy{}, nil
	case PolicyStrict:
		return NewStrictPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q", name)
	}
}
