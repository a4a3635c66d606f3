package service

import (
	"context"
	"testing"

	"github.com/gofhir/normalizer/fhir"
)

func encounterDiagnosis() *fhir.Condition {
	return &fhir.Condition{
		ID: "c1",
		Category: []*fhir.CodeableConcept{{
			Coding: []*fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/condition-category",
				Code:   "encounter-diagnosis",
			}},
		}},
		Code: &fhir.CodeableConcept{Coding: []*fhir.Coding{{Code: "R51"}}},
	}
}

func TestDependsOnExpression(t *testing.T) {
	tests := []struct {
		clause DependsOn
		want   string
	}{
		{
			DependsOn{Property: "Condition.category.coding.code", Value: "problem-list-item"},
			"(Condition.category.coding.code).exists($this = 'problem-list-item')",
		},
		{
			DependsOn{Property: " status ", Value: "it's"},
			`(status).exists($this = 'it\'s')`,
		},
	}

	for _, tt := range tests {
		if got := DependsOnExpression(tt.clause); got != tt.want {
			t.Errorf("DependsOnExpression = %q; want %q", got, tt.want)
		}
	}
}

func TestFHIRPathEvaluator_Evaluate(t *testing.T) {
	e := NewFHIRPathEvaluator("Condition")
	ctx := context.Background()
	res := encounterDiagnosis()

	tests := []struct {
		name    string
		clauses []DependsOn
		want    bool
	}{
		{"no clauses", nil, true},
		{
			"matching category",
			[]DependsOn{{Property: "Condition.category.coding.code", Value: "encounter-diagnosis"}},
			true,
		},
		{
			"other category",
			[]DependsOn{{Property: "Condition.category.coding.code", Value: "problem-list-item"}},
			false,
		},
		{
			"all clauses must hold",
			[]DependsOn{
				{Property: "Condition.category.coding.code", Value: "encounter-diagnosis"},
				{Property: "Condition.code.coding.code", Value: "R52"},
			},
			false,
		},
		{
			"absent property",
			[]DependsOn{{Property: "Condition.severity.coding.code", Value: "severe"}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(ctx, res, tt.clauses)
			if err != nil {
				t.Fatalf("Evaluate error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestFHIRPathEvaluator_UnmodelledProperty(t *testing.T) {
	res, err := fhir.ParseResource([]byte(`{
		"resourceType": "Condition",
		"id": "c2",
		"code": {"coding": [{"code": "R51"}]},
		"encounter": {"reference": "Encounter/e1"}
	}`))
	if err != nil {
		t.Fatalf("ParseResource error: %v", err)
	}

	e := NewFHIRPathEvaluator("Condition")
	got, err := e.Evaluate(context.Background(), res,
		[]DependsOn{{Property: "Condition.encounter.reference", Value: "Encounter/e1"}})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !got {
		t.Error("Evaluate = false; want true for a property without a Go field")
	}
}

func TestFHIRPathEvaluator_CachesCompiled(t *testing.T) {
	e := NewFHIRPathEvaluator("Condition")
	clauses := []DependsOn{{Property: "Condition.category.coding.code", Value: "encounter-diagnosis"}}

	for i := 0; i < 3; i++ {
		if _, err := e.Evaluate(context.Background(), encounterDiagnosis(), clauses); err != nil {
			t.Fatalf("Evaluate error: %v", err)
		}
	}
	if e.CacheSize() != 1 {
		t.Errorf("CacheSize = %d; want 1", e.CacheSize())
	}
}

func TestFHIRPathEvaluator_CancelledContext(t *testing.T) {
	e := NewFHIRPathEvaluator("Condition")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, encounterDiagnosis(), []DependsOn{{Property: "id", Value: "c1"}})
	if err == nil {
		t.Error("expected context error")
	}
}
