package usecase

import "github.com/faktugo/invoice-pipeline/internal/core/domain"

type noopObserver struct{}

func (noopObserver) RecordClassification(string)         {}
func (noopObserver) RecordRejection(domain.DocumentType) {}
func (noopObserver) RecordAliasAllocation(string, int)   {}
func (noopObserver) RecordDispatch(string)               {}
