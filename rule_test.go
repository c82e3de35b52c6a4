//go:build unit_test

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_boolish(t *testing.T) {
	assert.True(t, boolish(true))
	assert.True(t, boolish("true"))
	assert.True(t, boolish("TRUE"))
	assert.True(t, boolish("1"))
	assert.True(t, boolish("yes"))
	assert.True(t, boolish(int64(1)))
	assert.False(t, boolish(int64(0)))
	assert.False(t, boolish("false"))
	assert.False(t, boolish(nil))
}

func Test_decodeRule_bareString(t *testing.T) {
	rule, key, conditional, err := decodeRule("hello", "https://example.com/hello", "/", false, 307, false)
	assert.NoError(t, err)
	assert.Equal(t, "hello", key)
	assert.False(t, conditional)
	assert.Equal(t, "https://example.com/hello", rule.To)
	assert.Equal(t, "simple", rule.Kind)
	assert.Equal(t, 307, rule.Code)
}

func Test_decodeRule_table(t *testing.T) {
	raw := map[string]interface{}{
		"to":     "https://example.com/there",
		"kind":   "regex",
		"code":   int64(301),
		"qsa":    true,
		"from":   "overridden-key",
		"condition": map[string]interface{}{
			"mediatype": "text/turtle",
		},
	}
	rule, key, conditional, err := decodeRule("hello", raw, "/", false, 307, false)
	assert.NoError(t, err)
	assert.Equal(t, "overridden-key", key)
	assert.True(t, conditional)
	assert.Equal(t, "regex", rule.Kind)
	assert.Equal(t, 301, rule.Code)
	assert.True(t, rule.QSA)
	assert.NotNil(t, rule.Condition)
	assert.Equal(t, "text/turtle", rule.Condition.Mediatype)
}

func Test_decodeRule_missingTo(t *testing.T) {
	_, _, _, err := decodeRule("hello", map[string]interface{}{}, "/", false, 307, false)
	assert.Error(t, err)
}

func Test_decodeRule_defaultQSAInherited(t *testing.T) {
	rule, _, _, err := decodeRule("hello", "https://example.com/hello", "/", false, 307, true)
	assert.NoError(t, err)
	assert.True(t, rule.QSA)

	ruleExplicit, _, _, err := decodeRule("hello", map[string]interface{}{"to": "https://example.com/x", "qsa": false}, "/", false, 307, true)
	assert.NoError(t, err)
	assert.False(t, ruleExplicit.QSA)
}

func Test_IsDestRef(t *testing.T) {
	r := &Rule{To: "!my_dest"}
	assert.True(t, r.IsDestRef())
	assert.Equal(t, "my_dest", r.DestName())

	r2 := &Rule{To: "https://example.com"}
	assert.False(t, r2.IsDestRef())
}
