/* Copyright 2025 Leaf Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package helpers

import (
	"net/url"
	"testing"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/pkg/errors"
)

func TestGenUUID(t *testing.T) {
	// Execute
	first, err := GenUUID()
	if err != nil {
		t.Fatal(errors.Wrap(err, "generating uuid"))
	}
	second, err := GenUUID()
	if err != nil {
		t.Fatal(errors.Wrap(err, "generating uuid"))
	}

	// Test
	assert.Equal(t, ValidateUUID(first), true, "generated uuid should be valid")
	assert.NotEqual(t, second, first, "uuids should be unique")
}

func TestValidateUUID(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{
			input:    "f3e9e2cf-8cc2-44d3-a1ad-23f867b88d57",
			expected: true,
		},
		{
			input:    "",
			expected: false,
		},
		{
			input:    "not-a-uuid",
			expected: false,
		},
		{
			input:    "f3e9e2cf-8cc2-44d3-a1ad",
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got := ValidateUUID(tc.input)

			assert.Equal(t, got, tc.expected, "validation result mismatch")
		})
	}
}

func TestGetPath(t *testing.T) {
	t.Run("without query", func(t *testing.T) {
		got := GetPath("/v1/pages", nil)

		assert.Equal(t, got, "/v1/pages", "path mismatch")
	})

	t.Run("with query", func(t *testing.T) {
		q := url.Values{}
		q.Set("after_usn", "50")

		got := GetPath("/v1/sync/fragment", &q)

		assert.Equal(t, got, "/v1/sync/fragment?after_usn=50", "path mismatch")
	})
}
