package usecase

import (
	"telegram-vpn-subscription/internal/domain"
	"telegram-vpn-subscription/internal/domain/model"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase serves the static sales catalog. Plans and payment methods are
// compiled in; there is no admin surface for editing them at runtime.
type PlanUseCase interface {
	ListPlans() []model.ServicePlan
	FindPlan(id string) (*model.ServicePlan, error)
	ListPaymentMethods() []model.PaymentMethod
	FindPaymentMethod(id string) (*model.PaymentMethod, error)
}

type planUC struct {
	plans   []model.ServicePlan
	methods []model.PaymentMethod
}

func NewPlanUseCase(plans []model.ServicePlan, methods []model.PaymentMethod) *planUC {
	return &planUC{plans: plans, methods: methods}
}

func (u *planUC) ListPlans() []model.ServicePlan {
	return u.plans
}

func (u *planUC) FindPlan(id string) (*model.ServicePlan, error) {
	for i := range u.plans {
		if u.plans[i].ID == id {
			return &u.plans[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (u *planUC) ListPaymentMethods() []model.PaymentMethod {
	return u.methods
}

func (u *planUC) FindPaymentMethod(id string) (*model.PaymentMethod, error) {
	for i := range u.methods {
		if u.methods[i].ID == id {
			return &u.methods[i], nil
		}
	}
	return nil, domain.ErrNotFound
}
