// Package console is the operator's terminal for the bot's ledger.
//
// It talks to the same database as the running bot and offers the admin
// operations without going through Telegram:
//   - users / premium: list accounts
//   - credits add|remove <id> <n>
//   - validity set <id> <days> / validity remove <id>
//   - admin add <id>
//   - sweep: run one expiry pass now
//
// The REPL is started via Console.Run(ctx), which blocks until the operator
// exits or input ends.
package console
