package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "event-model", NormalizeName("Event_Model"))
	assert.Equal(t, "pytest-cov", NormalizeName("pytest.-cov"))
	assert.Equal(t, "ophyd", NormalizeName("ophyd"))
}

func TestAllows(t *testing.T) {
	cases := []struct {
		specs   SpecifierSet
		version string
		want    bool
	}{
		{nil, "1.0.0", true},
		{SpecifierSet{{">=", "1.4"}}, "1.4.0", true},
		{SpecifierSet{{">=", "1.4"}}, "1.3.9", false},
		{SpecifierSet{{">=", "1.0"}, {"<", "2"}}, "2.0.0", false},
		{SpecifierSet{{"==", "1.2.*"}}, "1.2.7", true},
		{SpecifierSet{{"==", "1.2.*"}}, "1.3.0", false},
		{SpecifierSet{{"!=", "1.5.0"}}, "1.5.0", false},
		{SpecifierSet{{"~=", "1.4.2"}}, "1.4.9", true},
		{SpecifierSet{{"~=", "1.4.2"}}, "1.5.0", false},
		{SpecifierSet{{"~=", "1.4"}}, "1.9.0", true},
		{SpecifierSet{{"~=", "1.4"}}, "2.0.0", false},
		{SpecifierSet{{"===", "1.0-custom"}}, "1.0-custom", true},
		{SpecifierSet{{"===", "1.0-custom"}}, "1.0.0", false},
		{SpecifierSet{{"==", "1.0"}}, "1.0.0", true},
		{SpecifierSet{{"==", "1.0"}}, "1.0.5", false},
		{SpecifierSet{{"<=", "1.2"}}, "1.2.9", false},
		{SpecifierSet{{">", "1.2"}}, "1.2.5", true},
		{SpecifierSet{{"!=", "1.0"}}, "1.0.5", true},
		{SpecifierSet{{"<", "2"}}, "1.9.9", true},
		{SpecifierSet{{"==", "6"}}, "6.0.1", false},
	}
	for _, c := range cases {
		got, err := c.specs.Allows(c.version)
		require.NoError(t, err, "%s against %s", c.specs, c.version)
		assert.Equal(t, c.want, got, "%s against %s", c.specs, c.version)
	}
}

func TestAllowsUnverifiable(t *testing.T) {
	_, err := SpecifierSet{{">=", "1.0"}}.Allows("1.0.post1")
	assert.True(t, errors.Is(err, ErrUnverifiable))

	_, err = SpecifierSet{{"~=", "1"}}.Allows("1.0.0")
	assert.True(t, errors.Is(err, ErrUnverifiable))
}

func TestGitHubRepo(t *testing.T) {
	d := DirectReference{URL: "git+https://github.com/bluesky/event-model.git@master#egg=event-model", VCS: "git", Ref: "master"}
	owner, repo, ok := d.GitHubRepo()
	require.True(t, ok)
	assert.Equal(t, "bluesky", owner)
	assert.Equal(t, "event-model", repo)

	d = DirectReference{URL: "https://gitlab.com/a/b/-/archive/main.zip"}
	_, _, ok = d.GitHubRepo()
	assert.False(t, ok)
}

func TestRequirementString(t *testing.T) {
	r := Requirement{Name: "pytest", Extras: []string{"testing"}, Specifiers: SpecifierSet{{">=", "6"}, {"<", "8"}}, Marker: `python_version >= "3.8"`}
	assert.Equal(t, `pytest[testing]>=6,<8; python_version >= "3.8"`, r.String())
}
