package profiling

// SeriesProfile summarizes the shape of one input series. Non-finite values
// are counted but excluded from every statistic.
type SeriesProfile struct {
	Name        string `json:"name,omitempty"`
	Count       int    `json:"count"`
	FiniteCount int    `json:"finite_count"`

	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`

	Skewness   float64 `json:"skewness"`
	Kurtosis   float64 `json:"kurtosis"` // total, not excess
	NormalityP float64 `json:"normality_p"`
	IsNormal   bool    `json:"is_normal"`

	OutlierCount     int     `json:"outlier_count"`
	NoiseCoefficient float64 `json:"noise_coefficient"`
}

// FiniteRatio is the share of observations usable by the analysis.
func (p SeriesProfile) FiniteRatio() float64 {
	if p.Count == 0 {
		return 0
	}
	return float64(p.FiniteCount) / float64(p.Count)
}
