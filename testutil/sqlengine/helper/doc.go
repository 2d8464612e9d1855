// Package helper provides fixtures and observability spies for sqlengine tests.
package helper
