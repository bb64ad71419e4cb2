package profiling

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"gocausal/internal/errors"
)

// normalityAlpha is the significance level below which a series is reported non-normal
const normalityAlpha = 0.05

// ProfileSeries computes summary and shape statistics for a series.
func ProfileSeries(values []float64) (SeriesProfile, error) {
	profile := SeriesProfile{Count: len(values)}

	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			data = append(data, v)
		}
	}
	profile.FiniteCount = len(data)
	if len(data) < 2 {
		return profile, errors.InsufficientData(fmt.Sprintf("need at least 2 finite values to profile, got %d", len(data)))
	}

	var err error
	if profile.Mean, err = stats.Mean(data); err != nil {
		return profile, errors.Wrap(err, "mean")
	}
	if profile.StdDev, err = stats.StandardDeviation(data); err != nil {
		return profile, errors.Wrap(err, "standard deviation")
	}
	if profile.Min, err = stats.Min(data); err != nil {
		return profile, errors.Wrap(err, "min")
	}
	if profile.Max, err = stats.Max(data); err != nil {
		return profile, errors.Wrap(err, "max")
	}
	if profile.Median, err = stats.Median(data); err != nil {
		return profile, errors.Wrap(err, "median")
	}
	profile.Q25, profile.Q75 = quartiles(data)

	profile.Skewness, profile.Kurtosis = moments(data, profile.Mean)
	profile.NormalityP = jarqueBera(len(data), profile.Skewness, profile.Kurtosis)
	profile.IsNormal = profile.NormalityP > normalityAlpha
	profile.OutlierCount = detectOutliers(data, profile.Q25, profile.Q75)
	profile.NoiseCoefficient = noiseCoefficient(profile.Mean, profile.StdDev)

	return profile, nil
}

// quartiles returns the empirical 25th and 75th percentiles. Unlike
// stats.Percentile it is defined for any non-empty series.
func quartiles(data []float64) (q25, q75 float64) {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(0.25, stat.Empirical, sorted, nil), stat.Quantile(0.75, stat.Empirical, sorted, nil)
}

// moments returns the population skewness and total kurtosis.
// A constant series has skewness 0 and kurtosis 0.
func moments(data []float64, mean float64) (skewness, kurtosis float64) {
	n := float64(len(data))
	var m2, m3, m4 float64
	for _, x := range data {
		d := x - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 == 0 {
		return 0, 0
	}
	return m3 / math.Pow(m2, 1.5), m4 / (m2 * m2)
}

// jarqueBera returns the p-value of the Jarque-Bera normality test
func jarqueBera(n int, skewness, kurtosis float64) float64 {
	if n < 3 || kurtosis == 0 {
		return 1.0
	}
	excess := kurtosis - 3
	jb := float64(n) / 6 * (skewness*skewness + excess*excess/4)
	chiDist := distuv.ChiSquared{K: 2}
	return 1 - chiDist.CDF(jb)
}

// detectOutliers identifies outliers using IQR method
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}

	return outlierCount
}

// noiseCoefficient is the coefficient of variation scaled into [0,1]
func noiseCoefficient(mean, stdDev float64) float64 {
	if mean == 0 {
		return 1.0
	}
	return math.Min(stdDev/math.Abs(mean)/2.0, 1.0)
}
