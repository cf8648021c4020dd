package model

// PanelInput is a required panel or stock sheet as submitted, with
// dimensions still in decimal string form.
type PanelInput struct {
	ID       int    `json:"id"`
	Width    string `json:"width" validate:"required,numeric"`
	Height   string `json:"height" validate:"required,numeric"`
	Count    int    `json:"count" validate:"gte=0"`
	Material string `json:"material,omitempty"`
	Label    string `json:"label,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Grain    Grain  `json:"grain,omitempty"`
}

// IsEnabled defaults to true when the flag was omitted.
func (p PanelInput) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// IsActive reports whether the entry contributes at least one tile.
func (p PanelInput) IsActive() bool {
	return p.IsEnabled() && p.Count > 0
}

// PerformanceInput mirrors PerformanceThresholds with JSON-friendly units.
type PerformanceInput struct {
	MaxSimultaneousTasks    int `json:"max_simultaneous_tasks" validate:"gte=0"`
	MaxSimultaneousThreads  int `json:"max_simultaneous_threads" validate:"gte=0"`
	ThreadCheckIntervalMill int `json:"thread_check_interval_ms" validate:"gte=0"`
}

// ConfigurationInput is the unscaled configuration of a request.
type ConfigurationInput struct {
	CutThickness        string           `json:"cut_thickness" validate:"omitempty,numeric"`
	MinTrimDimension    string           `json:"min_trim_dimension" validate:"omitempty,numeric"`
	ConsiderOrientation bool             `json:"consider_orientation"`
	OptimizationLevel   string           `json:"optimization_level,omitempty"`
	OptimizationFactor  float64          `json:"optimization_factor,omitempty" validate:"gte=0"`
	Priority            string           `json:"priority,omitempty"`
	UseSingleStockUnit  bool             `json:"use_single_stock_unit"`
	SplitPolicy         string           `json:"split_policy,omitempty"`
	Performance         PerformanceInput `json:"performance"`
}

// Request is one optimization job as submitted by a client.
type Request struct {
	ClientID      string             `json:"client_id,omitempty"`
	Panels        []PanelInput       `json:"panels" validate:"required,min=1,dive"`
	Stock         []PanelInput       `json:"stock" validate:"required,min=1,dive"`
	Configuration ConfigurationInput `json:"configuration"`
}
