// Package directory resolves CRM users and classifies them into roles.
//
// Role classification (sales representative, account manager) is not a CRM
// attribute: it is a membership or pattern test against configured data.
// RoleClassifier is the pluggable predicate; configuration chooses between
// exact email sets, email substring patterns, and display-name sets.
package directory
