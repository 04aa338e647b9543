package redact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
)

// policyFile is the on-disk form of a policy:
//
//	version: "2024-10-01"
//	rules:
//	  - pattern: userId
//	    mask: 33
type policyFile struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// LoadPolicy returns DefaultPolicy when path is empty, otherwise the policy
// read from the YAML file at path. It is called once at startup.
func LoadPolicy(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrPolicyOpen, path, err)
	}
	defer f.Close()

	return ReadPolicy(f)
}

// ReadPolicy decodes a YAML policy. Unknown keys are rejected.
func ReadPolicy(r io.Reader) (*Policy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var pf policyFile
	if err := dec.Decode(&pf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New(constants.ErrPolicyEmpty)
		}
		return nil, fmt.Errorf(constants.ErrPolicyDecode, err)
	}

	version := strings.TrimSpace(pf.Version)
	if version == "" {
		return nil, errors.New(constants.ErrPolicyVersion)
	}
	return newPolicy(version, pf.Rules)
}
