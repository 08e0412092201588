// Package httpapp provides the HTTP API server for Inkwell.
//
//	@title						Inkwell API
//	@version					1.0
//	@description				A blogging platform backend: posts, categories, tags,
//	@description				comments and full-text search over a relational store.
//	@description
//	@description				## Authentication
//	@description
//	@description				Register once, then log in to receive a bearer token bound
//	@description				to a server-side session (valid for 7 days by default):
//	@description				```bash
//	@description				curl -X POST /api/auth/register -d '{"email":"a@b.c","password":"secret","username":"ada"}'
//	@description				curl -X POST /api/auth/login -d '{"email":"a@b.c","password":"secret"}'
//	@description				# Returns: {"token": "...", "user": {...}}
//	@description				```
//	@description				Send the token on every write:
//	@description				```bash
//	@description				curl -X POST /api/posts -H "Authorization: Bearer TOKEN" -d '{...}'
//	@description				```
//	@description				Updating or deleting a post or comment additionally requires
//	@description				being its author, or holding the admin role.
//
//	@contact.name				Inkwell
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from /api/auth/login
//
//	@tag.name					Authentication
//	@tag.description			Registration, login, logout and current-user lookup.
//
//	@tag.name					Posts
//	@tag.description			Post CRUD with category/tag filtering and offset pagination. Reads count views.
//
//	@tag.name					Comments
//	@tag.description			Flat comment lists per post with optional single-level threading.
//
//	@tag.name					Taxonomy
//	@tag.description			Pre-seeded categories and tags used to organize posts.
//
//	@tag.name					Media
//	@tag.description			Cover image and avatar uploads.
//
//	@tag.name					Search
//	@tag.description			Full-text search over published posts, delegated to the store's index.
package httpapp
