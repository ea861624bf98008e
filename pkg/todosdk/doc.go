/*
Package todosdk is a Go client for the tabtodo service.

A Client covers the public endpoints and creates Sessions:

	client := todosdk.NewClient("https://todos.example.com")

	session, err := client.Register(ctx, todosdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})

	// or, for an existing account (username or email)
	session, err = client.Authenticate(ctx, "alice", "correct horse battery")

A Session sends its token as an Authorization: Bearer header:

	todo, err := session.CreateTodo(ctx, todosdk.TodoRequest{Title: "Buy milk"})
	done := true
	todo, err = session.PatchTodo(ctx, todo.ID, todosdk.PatchTodoRequest{Completed: &done})

	list, err := session.ListTodos(ctx, todosdk.TodoQuery{Completed: &done})

Tokens are not refreshed. When a token expires the Session returns
ErrSessionExpired and a new one has to be created with Authenticate. Logout
clears the server cookie but does not revoke the token.

# Errors

Every non-2xx reply is returned as an *APIError holding the status, the
error code and, for invalid input, the message per field:

	_, err := session.GetTodo(ctx, 42)
	switch {
	case todosdk.IsNotFound(err):
	case todosdk.IsForbidden(err):
	}
*/
package todosdk
