//go:build !linux

package firewall

func (r *RealCommandRunner) Run(name string, args ...string) error {
	return ErrUnsupported
}

func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return nil, ErrUnsupported
}

func (r *RealCommandRunner) RunInput(input string, name string, args ...string) error {
	return ErrUnsupported
}
