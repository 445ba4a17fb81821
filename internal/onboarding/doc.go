// Package onboarding implements the four-step profile wizard shown after signup.
//
// Steps:
//  1. languages, gender and age
//  2. education level (school or college)
//  3. class for school, or field, course and optional domain for college
//  4. goals and learning styles
//
// Each step must be complete before the next is reachable. Finishing writes every
// collected field with onboarded set to true.
package onboarding
