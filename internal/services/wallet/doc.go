/*
Package wallet owns account balances and the daily spend accumulator.

The Ledger is the only code that writes Account.Balance, Account.DailySpent
and Account.DailyResetAt. Every mutation locks the affected accounts inside a
store transaction, re-reads them, checks funds, activity and the daily limit,
and writes the result before the lock is released, so concurrent requests
against one account are applied one at a time.

Usage:

	ledger := wallet.NewLedger(store, converter, cacheService, wallet.Config{
	    DailyLimit: decimal.NewFromInt(10000),
	})

	// Open an account
	account, err := ledger.OpenAccount(ctx, userID, "USD")

	// Credit, counting toward today's accumulator
	account, err = ledger.ApplyDelta(ctx, account.ID, decimal.NewFromInt(50), true)

	// Move money between two accounts atomically
	sender, recipient, err := ledger.ApplyTransfer(ctx, fromID, toID, debit, credit)

Callers that need their own writes in the same store transaction bind a copy
of the ledger to it with WithStore.

Daily limit:

The accumulator belongs to a calendar day in Config.Location (UTC by default).
WouldExceedDailyLimit treats an accumulator from an earlier day as zero but
never writes; the reset is committed by the next mutation of the account.

Cache:

GetBalance reads through the balance cache. Mutations do not touch the cache;
callers invalidate it after their transaction commits.
*/
package wallet
