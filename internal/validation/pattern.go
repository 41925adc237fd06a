/*
 * MIT License
 *
 * Copyright (c) 2023-2026  Rivet Gaming, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package validation

import (
	"errors"
	"regexp"
)

// patternValidator is used to perform a validation provided a given pattern
type patternValidator struct {
	pattern     string
	expression  string
	customError error
}

// NewPatternValidator creates an instance of patternValidator. The given
// custom error, when not nil, replaces the generic mismatch error.
func NewPatternValidator(pattern, expression string, customError error) Validator {
	return &patternValidator{
		pattern:     pattern,
		expression:  expression,
		customError: customError,
	}
}

// Validate implements Validator.
func (v patternValidator) Validate() error {
	match, err := regexp.MatchString(v.pattern, v.expression)
	if err != nil {
		return err
	}
	if !match {
		if v.customError != nil {
			return v.customError
		}
		return errors.New("invalid expression: " + v.expression)
	}
	return nil
}
