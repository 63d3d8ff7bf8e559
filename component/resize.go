package component

import (
	"fmt"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
)

// ResizeInputs grows or shrinks a vector of inputs owned by owner to n
// elements. New inputs are named <prefix><i+start><postfix> where i is their
// position in the vector; removed inputs are detached and disconnected.
func ResizeInputs[T any](owner Base, ports []*Input[T], n int, prefix string, start int, postfix string) ([]*Input[T], error) {
	return resize(ports, n, prefix, start, postfix, func(name string) (*Input[T], error) {
		return NewInput[T](owner, name)
	})
}

// ResizeOutputs is ResizeInputs for outputs.
func ResizeOutputs[T any](owner Base, ports []*Output[T], n int, prefix string, start int, postfix string) ([]*Output[T], error) {
	return resize(ports, n, prefix, start, postfix, func(name string) (*Output[T], error) {
		return NewOutput[T](owner, name)
	})
}

type removablePort interface {
	Remove()
}

func resize[P removablePort](ports []P, n int, prefix string, start int, postfix string,
	create func(name string) (P, error)) ([]P, error) {
	if n < 0 {
		return ports, errors.WrapInvalid(fmt.Errorf("negative port count %d", n),
			"Component", "resize", "size check")
	}

	for len(ports) > n {
		last := len(ports) - 1
		ports[last].Remove()
		ports = ports[:last]
	}
	for len(ports) < n {
		p, err := create(fmt.Sprintf("%s%d%s", prefix, len(ports)+start, postfix))
		if err != nil {
			return ports, err
		}
		ports = append(ports, p)
	}
	return ports, nil
}
