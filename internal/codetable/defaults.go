package codetable

import "github.com/em-billing-mcp-server/internal/domain"

// Code categories used by the bundled table.
const (
	CategoryNewPatient     = "office_new"
	CategoryEstablished    = "office_established"
	CategoryWellness       = "wellness"
	CategoryCarePlanning   = "care_planning"
	CategoryScreening      = "screening"
	CategoryCounseling     = "counseling"
	CategoryAddOn          = "add_on"
	CategoryCareManagement = "care_management"
)

// DefaultCodes returns the bundled reference table: office E/M visits, annual
// wellness visits and the add-on services the calculators offer.
func DefaultCodes() []domain.BillingCode {
	return []domain.BillingCode{
		{ID: "99202", Description: "Office visit, new patient, straightforward MDM", RVU: 2.15, Category: CategoryNewPatient},
		{ID: "99203", Description: "Office visit, new patient, low MDM", RVU: 3.31, Category: CategoryNewPatient},
		{ID: "99204", Description: "Office visit, new patient, moderate MDM", RVU: 4.94, Category: CategoryNewPatient},
		{ID: "99205", Description: "Office visit, new patient, high MDM", RVU: 6.52, Category: CategoryNewPatient},
		{ID: "99211", Description: "Office visit, established patient, minimal", RVU: 0.67, Category: CategoryEstablished},
		{ID: "99212", Description: "Office visit, established patient, straightforward MDM", RVU: 1.66, Category: CategoryEstablished},
		{ID: "99213", Description: "Office visit, established patient, low MDM", RVU: 2.66, Category: CategoryEstablished},
		{ID: "99214", Description: "Office visit, established patient, moderate MDM", RVU: 3.75, Category: CategoryEstablished},
		{ID: "99215", Description: "Office visit, established patient, high MDM", RVU: 5.27, Category: CategoryEstablished},
		{ID: "G0438", Description: "Annual wellness visit, initial", RVU: 2.43, Category: CategoryWellness},
		{ID: "G0439", Description: "Annual wellness visit, subsequent", RVU: 1.50, Category: CategoryWellness},
		{ID: "99497", Description: "Advance care planning, first 30 minutes", RVU: 2.22, Category: CategoryCarePlanning},
		{ID: "99498", Description: "Advance care planning, each additional 30 minutes", RVU: 1.92, Category: CategoryCarePlanning},
		{ID: "G0444", Description: "Annual depression screening, 5-15 minutes", RVU: 0.53, Category: CategoryScreening},
		{ID: "G0442", Description: "Annual alcohol misuse screening, 5-15 minutes", RVU: 0.53, Category: CategoryScreening},
		{ID: "G0443", Description: "Brief alcohol misuse counseling, 15 minutes", RVU: 0.76, Category: CategoryCounseling},
		{ID: "99406", Description: "Tobacco cessation counseling, 3-10 minutes", RVU: 0.45, Category: CategoryCounseling},
		{ID: "99407", Description: "Tobacco cessation counseling, over 10 minutes", RVU: 0.83, Category: CategoryCounseling},
		{ID: "99401", Description: "Preventive medicine counseling, 15 minutes", RVU: 1.05, Category: CategoryCounseling},
		{ID: "96127", Description: "Brief emotional or behavioral assessment", RVU: 0.12, Category: CategoryScreening},
		{ID: "G2211", Description: "Visit complexity inherent to longitudinal care", RVU: 0.48, Category: CategoryAddOn},
		{ID: "99490", Description: "Chronic care management, first 20 minutes", RVU: 1.85, Category: CategoryCareManagement},
		{ID: "99439", Description: "Chronic care management, each additional 20 minutes", RVU: 1.40, Category: CategoryCareManagement},
	}
}

// DefaultTable returns a snapshot of DefaultCodes.
func DefaultTable() *Table {
	return MustNewTable(DefaultCodes())
}
