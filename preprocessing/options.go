package preprocessing

// SpheringOption is a function that configures Sphering
type SpheringOption func(*Sphering)

// WithEpsilon sets the value added to every singular value before inversion
func WithEpsilon(eps float64) SpheringOption {
	return func(s *Sphering) {
		s.epsilon = eps
	}
}

// WithCenter sets whether to subtract the column means before the decomposition
func WithCenter(center bool) SpheringOption {
	return func(s *Sphering) {
		s.center = center
	}
}

// WithRawOutput makes Transform return a bare *mat.Dense even for labeled input
func WithRawOutput(raw bool) SpheringOption {
	return func(s *Sphering) {
		s.rawOutput = raw
	}
}

// WithRankTolerance overrides the singular-value threshold used for the rank check.
// Zero selects linalg.DefaultTolerance.
func WithRankTolerance(tol float64) SpheringOption {
	return func(s *Sphering) {
		s.rankTol = tol
	}
}

// RobustOption is a function that configures RobustMAD
type RobustOption func(*RobustMAD)

// WithMADEpsilon sets the value added to the MAD before division
func WithMADEpsilon(eps float64) RobustOption {
	return func(r *RobustMAD) {
		r.epsilon = eps
	}
}

// WithRobustRawOutput makes Transform return a bare *mat.Dense even for labeled input
func WithRobustRawOutput(raw bool) RobustOption {
	return func(r *RobustMAD) {
		r.rawOutput = raw
	}
}
