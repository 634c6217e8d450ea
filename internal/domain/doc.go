// Package domain contains the core business entities, value objects, and
// domain logic of the application: tracked tasks, scraped and generated
// posts, and the facts recorded once an external action has succeeded.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
