package evaluation

// NewServiceMock returns a Service which sends its notifications synchronously.
func NewServiceMock(deps ServiceDeps) *Service {
	svc := NewService(deps)
	svc.goFunc = func(fn func()) { fn() }
	return svc
}
