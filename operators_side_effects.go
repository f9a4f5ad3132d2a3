// Side effect operators for rxlite
// 副作用操作符实现，包含DoOnNext, DoOnError, DoOnCompleted
package rxlite

// ============================================================================
// 副作用操作符实现
// ============================================================================

// DoOnNext 在当前阶段的lane上对每个值执行副作用，然后原样转发
//
// action panic时该阶段以OnError终止。
func (o Observable[T]) DoOnNext(action OnNext[T]) Observable[T] {
	return newObservable(o.lanes, func(c *chain, down Subscriber[T]) {
		r := &relay[T]{c: c, fail: down.OnError, complete: down.OnCompleted}
		r.next = func(value T) {
			if action != nil {
				if err := SafeExecute(func() { action(value) }); err != nil {
					r.OnError(err)
					return
				}
			}
			down.OnNext(value)
		}
		o.subscribeWith(c, r)
	})
}

// DoOnError 在发生错误时执行副作用操作，错误本身原样转发
func (o Observable[T]) DoOnError(action OnError) Observable[T] {
	return newObservable(o.lanes, func(c *chain, down Subscriber[T]) {
		o.subscribeWith(c, &relay[T]{
			c:    c,
			next: down.OnNext,
			fail: func(err error) {
				if action != nil {
					if perr := SafeExecute(func() { action(err) }); perr != nil {
						c.log.Error().Err(perr).AnErr("cause", err).Msg("DoOnError action panicked")
					}
				}
				down.OnError(err)
			},
			complete: down.OnCompleted,
		})
	})
}

// DoOnCompleted 在完成时执行副作用操作；action panic时改为发射OnError
func (o Observable[T]) DoOnCompleted(action OnCompleted) Observable[T] {
	return newObservable(o.lanes, func(c *chain, down Subscriber[T]) {
		o.subscribeWith(c, &relay[T]{
			c:    c,
			next: down.OnNext,
			fail: down.OnError,
			complete: func() {
				if action != nil {
					if err := SafeExecute(func() { action() }); err != nil {
						down.OnError(err)
						return
					}
				}
				down.OnCompleted()
			},
		})
	})
}
