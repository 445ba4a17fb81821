// Package models defines domain entities and persistence interfaces for the modulearn learning-path service.
//
// The package contains three categories of types:
//
// 1. Profile data: the durable learner record
//   - [UserProfile] : a learner's demographic and academic answers plus the onboarded flag
//   - [ProfileUpdate] : a partial save where nil fields are left untouched
//
// 2. Transient learning content: never persisted, handed between views
//   - [GeneratedCurriculum] : an LLM-authored course outline
//   - [CurriculumModule] : one chapter with its subtopics
//   - [Video] : a recommended video for a module
//
// 3. Authentication: identities, sessions and the route a session lands on
//   - [Identity], [Session], [Route]
//
// [ProfileStore] and [CredentialStore] define the storage boundaries implemented in internal/repositories.
package models
