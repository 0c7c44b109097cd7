package run

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/epics-containers/kodman/pkg/defaults"
	"github.com/epics-containers/kodman/pkg/errors"
)

// DefaultNamePrefix prefixes generated Pod names.
const DefaultNamePrefix = defaults.NamePrefix

// NameGenerator derives Pod names for requests.
type NameGenerator struct {
	prefix string
	now    func() time.Time
	salt   func() string
}

// NewNameGenerator returns a generator for prefix, or DefaultNamePrefix if
// prefix is empty.
func NewNameGenerator(prefix string) *NameGenerator {
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	return &NameGenerator{
		prefix: prefix,
		now:    time.Now,
		salt:   uuid.NewString,
	}
}

// Generate returns req.Name if set, otherwise a fresh salted name. Either way
// the name is checked to be a valid Pod name.
func (g *NameGenerator) Generate(req Request) (string, error) {
	name := req.Name
	if name == "" {
		name = g.prefix + "-" + strconv.FormatUint(g.hash(req), 10)
	}

	if msgs := validation.IsDNS1123Subdomain(name); len(msgs) > 0 {
		return "", errors.WrapWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid pod name %q: %s", name, strings.Join(msgs, "; ")), nil,
			map[string]any{"name": name})
	}
	return name, nil
}

func (g *NameGenerator) hash(req Request) uint64 {
	d := xxhash.New()
	for _, field := range [][]string{
		{req.Image},
		{req.Entrypoint, req.Command},
		req.Args,
		req.Volumes,
		{strconv.FormatInt(g.now().UnixNano(), 10), g.salt()},
	} {
		for _, s := range field {
			_, _ = d.WriteString(s)
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.Write([]byte{1})
	}
	return d.Sum64()
}
