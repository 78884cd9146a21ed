package eventstudy

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var errDegenerateRegression = errors.New("benchmark returns have no variance")

// MarketModel is the fitted R_stock = Alpha + Beta * R_market.
type MarketModel struct {
	Alpha       float64 `json:"alpha"`
	Beta        float64 `json:"beta"`
	RSquared    float64 `json:"r_squared"`
	ResidualStd float64 `json:"residual_std"`
	N           int     `json:"n"`
}

func (m MarketModel) Expected(marketReturn float64) float64 {
	return m.Alpha + m.Beta*marketReturn
}

// fitMarketModel runs OLS of stock on market returns.
func fitMarketModel(market, stock []float64) (MarketModel, error) {
	n := len(stock)
	if n != len(market) {
		return MarketModel{}, errors.New("market and stock lengths differ")
	}
	if n < 3 {
		return MarketModel{}, errors.New("need at least 3 observations")
	}
	if stat.Variance(market, nil) == 0 {
		return MarketModel{}, errDegenerateRegression
	}

	alpha, beta := stat.LinearRegression(market, stock, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return MarketModel{}, errDegenerateRegression
	}

	resid := make([]float64, n)
	for i := range stock {
		resid[i] = stock[i] - (alpha + beta*market[i])
	}
	ssr := floats.Dot(resid, resid)

	r2 := 0.0
	if stat.Variance(stock, nil) > 0 {
		r2 = stat.RSquared(market, stock, nil, alpha, beta)
	}

	return MarketModel{
		Alpha:       alpha,
		Beta:        beta,
		RSquared:    r2,
		ResidualStd: math.Sqrt(ssr / float64(n-2)),
		N:           n,
	}, nil
}
