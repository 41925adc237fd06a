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

import "errors"

// booleanValidator implements Validator.
type booleanValidator struct {
	boolCheck  bool
	errMessage string
}

// NewBooleanValidator creates a new boolean validator that returns an error
// message if condition is false. This validator will come handy when dealing
// with conditional validation
func NewBooleanValidator(boolCheck bool, errMessage string) Validator {
	return &booleanValidator{boolCheck: boolCheck, errMessage: errMessage}
}

// Validate returns an error if boolean check is false
func (v booleanValidator) Validate() error {
	if !v.boolCheck {
		return errors.New(v.errMessage)
	}
	return nil
}

// emptyStringValidator implements Validator.
type emptyStringValidator struct {
	fieldName  string
	fieldValue string
}

// NewEmptyStringValidator creates a validator that fails when the given field
// value is empty.
func NewEmptyStringValidator(fieldName, fieldValue string) Validator {
	return &emptyStringValidator{fieldName: fieldName, fieldValue: fieldValue}
}

// Validate implements Validator.
func (v emptyStringValidator) Validate() error {
	if v.fieldValue == "" {
		return errors.New("the [" + v.fieldName + "] is required")
	}
	return nil
}
