// Package seed loads demo users and apps into a store.
//
// The built-in dataset is embedded and mirrors the mock feed the frontend
// shipped with. A seed directory adds more apps: every app.yaml, app.yml or
// app.toml below it is one app, with its code either inline or in sibling
// index.html, style.css and app.js files.
//
// Loading is idempotent. Users and apps that already exist are left alone,
// so a persistent store can be seeded on every start.
package seed
