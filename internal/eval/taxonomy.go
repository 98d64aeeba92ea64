package eval

import (
	"sort"

	"bintly/internal/runstore"
)

// FailureCase is one failed run: which task, under which arm. The same task
// failing in both arms produces two cases.
type FailureCase struct {
	TaskID string       `json:"task_id"`
	Arm    runstore.Arm `json:"arm"`
}

// FailureTaxonomy groups failed runs by error kind.
type FailureTaxonomy map[runstore.ErrorKind][]FailureCase

// BuildTaxonomy maps every failed record into the taxonomy, one entry per
// (error_kind, task_id, arm). Failed records without a kind go into the
// unclassified bucket so every failure stays accounted for. Cases within a
// kind are ordered by task then arm.
func BuildTaxonomy(records []runstore.RunRecord) FailureTaxonomy {
	type caseKey struct {
		kind runstore.ErrorKind
		FailureCase
	}
	taxonomy := make(FailureTaxonomy)
	seen := make(map[caseKey]struct{})
	for _, r := range records {
		if r.Succeeded {
			continue
		}
		kind := r.ErrorKind
		if kind == "" {
			kind = runstore.ErrorKindUnclassified
		}
		key := caseKey{kind, FailureCase{TaskID: r.TaskID, Arm: r.Arm}}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		taxonomy[kind] = append(taxonomy[kind], FailureCase{TaskID: r.TaskID, Arm: r.Arm})
	}
	for kind := range taxonomy {
		cases := taxonomy[kind]
		sort.Slice(cases, func(i, j int) bool {
			if cases[i].TaskID != cases[j].TaskID {
				return cases[i].TaskID < cases[j].TaskID
			}
			return cases[i].Arm < cases[j].Arm
		})
	}
	return taxonomy
}

// TotalFailures counts the cases across all kinds.
func (t FailureTaxonomy) TotalFailures() int {
	n := 0
	for _, cases := range t {
		n += len(cases)
	}
	return n
}
