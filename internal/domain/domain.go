package domain

import "github.com/yungbote/experiments-backend/internal/domain/experiments"

const (
	ExperimentStatusActive = experiments.StatusActive
)

type Experiment = experiments.Experiment
type Variant = experiments.Variant
type UserAssignment = experiments.UserAssignment
type Event = experiments.Event

type ExperimentResults = experiments.ExperimentResults
type VariantResult = experiments.VariantResult
type ResultsSummary = experiments.ResultsSummary
