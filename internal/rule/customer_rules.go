package rule

// AffiliateCodeRule compares the customer's affiliate code. A cart without
// a customer, or a customer without a code, satisfies only negative
// operators.
type AffiliateCodeRule struct {
	Operator      Operator `json:"operator" validate:"required"`
	AffiliateCode string   `json:"affiliateCode"`
}

// Name identifies the rule variant.
func (AffiliateCodeRule) Name() string { return "customerAffiliateCode" }

// Match compares the context customer's affiliate code.
func (r AffiliateCodeRule) Match(scope Scope) bool {
	ctx := scope.ChannelContext()
	if ctx == nil || ctx.Customer == nil {
		return IsNegative(r.Operator)
	}
	return CompareString(ctx.Customer.AffiliateCode, r.AffiliateCode, r.Operator)
}

// Constraints describes the configuration schema. The code is optional for
// the empty operator.
func (r AffiliateCodeRule) Constraints() map[string][]string {
	constraints := map[string][]string{
		"operator": {"required", "stringOperator"},
	}
	if r.Operator != OpEmpty {
		constraints["affiliateCode"] = []string{"required", "string"}
	}
	return constraints
}
