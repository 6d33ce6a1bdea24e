// Package testing provides test infrastructure for marketplace tests.
//
// It wraps an in-memory chain with deterministic accounts, a manual block
// clock, genesis and message builders, and assertion helpers.
//
// # Basic Usage
//
//	func TestFixedSale(t *testing.T) {
//	    env := marbletest.NewTestEnv(t)
//	    seller := marbletest.NewAccount("seller")
//	    buyer := marbletest.NewAccount("buyer")
//
//	    env.ApplyGenesis(marbletest.NewGenesis().
//	        Fund(buyer, "umarble", 10_000).
//	        Build())
//	    coll := env.DeployCollection(seller, marbletest.CollectionMsg(seller))
//
//	    env.RequireSuccess(env.Execute(seller, coll.Address, marbletest.Mint("ipfs://1", seller)))
//	    ...
//	}
package testing
