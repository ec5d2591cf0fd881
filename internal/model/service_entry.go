package model

// RawService is a service entry as submitted by upstream form handling.
// It is one of ServiceRecord, *ServiceModel, *LegacyService or UnknownService.
type RawService interface {
	rawService()
}

// ServiceRecord is the generic key-value shape, typically decoded from JSON.
type ServiceRecord map[string]interface{}

// ServiceModel is the typed service shape.
type ServiceModel struct {
	Name               string   `json:"nombre_servicio"`
	ResultingCondition string   `json:"condicion_resultante"`
	LegacyCondition    string   `json:"nueva_condicion"`
	ToothNumber        *int     `json:"diente_numero"`
	Surfaces           []string `json:"superficies"`
	Material           string   `json:"material"`
	Notes              string   `json:"observaciones"`
	Severity           string   `json:"severidad"`
}

// LegacyService is the temporary record kept by older visit forms. Surfaces
// arrive as a single comma or space delimited string.
type LegacyService struct {
	Name         string `json:"nombre_servicio"`
	NewCondition string `json:"nueva_condicion"`
	ToothNumber  string `json:"diente_numero"`
	Surface      string `json:"superficie"`
	Material     string `json:"material_utilizado"`
}

// UnknownService wraps input of an unsupported shape.
type UnknownService struct {
	Value interface{}
}

func (ServiceRecord) rawService()  {}
func (*ServiceModel) rawService()  {}
func (*LegacyService) rawService() {}
func (UnknownService) rawService() {}

// CanonicalServiceRecord is a service applied during a visit, normalized.
// An empty ResultingCondition marks a preventive service that does not change
// the chart.
type CanonicalServiceRecord struct {
	Name               string     `json:"name"`
	ResultingCondition string     `json:"resulting_condition,omitempty"`
	ToothNumber        *int       `json:"tooth_number,omitempty"`
	Surfaces           SurfaceSet `json:"surfaces"`
	Material           string     `json:"material,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	Severity           string     `json:"severity,omitempty"`
}

func (r CanonicalServiceRecord) IsPreventive() bool {
	return r.ResultingCondition == ""
}

// IsWholeTooth reports whether the record targets a tooth without naming surfaces.
func (r CanonicalServiceRecord) IsWholeTooth() bool {
	return r.ToothNumber != nil && len(r.Surfaces) == 0
}

// ConditionCatalogEntry describes a clinical condition and its conflict priority.
type ConditionCatalogEntry struct {
	Code            string `db:"code" json:"code" binding:"required"`
	DisplayName     string `db:"display_name" json:"display_name" binding:"required"`
	Category        string `db:"category" json:"category"`
	Priority        int    `db:"priority" json:"priority" binding:"min=0"`
	IsTerminal      bool   `db:"is_terminal" json:"is_terminal"`
	AllowsReversion bool   `db:"allows_reversion" json:"allows_reversion"`
	Color           string `db:"color" json:"color"`
}
