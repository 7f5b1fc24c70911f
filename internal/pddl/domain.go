package pddl

// DomainName is the name every emitted problem refers to in (:domain ...).
const DomainName = "BOX-WORLD"

// Domain is the fixed BOX-WORLD domain. A single robot moves between
// locations and picks up, puts down, stacks and unstacks boxes one at a
// time. forbidden-stack pairs block stacking; black and white are inert tags
// available to goal formulas.
const Domain = `(define (domain BOX-WORLD)
  (:requirements :strips :typing :negative-preconditions)
  (:types location box - object)
  (:predicates
    (holding ?b - box)
    (hands-empty)
    (robot-at ?l - location)
    (box-at ?b - box ?l - location)
    (forbidden-stack ?top - box ?bottom - box)
    (on ?b - box ?x - object)
    (clear ?x - object)
    (black ?x - object)
    (white ?x - object)
  )

  (:action move
    :parameters (?from - location ?to - location)
    :precondition (robot-at ?from)
    :effect (and (not (robot-at ?from)) (robot-at ?to))
  )

  (:action pickup
    :parameters (?b - box ?l - location)
    :precondition (and (robot-at ?l) (hands-empty) (box-at ?b ?l) (on ?b ?l) (clear ?b))
    :effect (and (holding ?b) (clear ?l)
                 (not (hands-empty)) (not (box-at ?b ?l)) (not (on ?b ?l)) (not (clear ?b)))
  )

  (:action putdown
    :parameters (?b - box ?l - location)
    :precondition (and (robot-at ?l) (holding ?b) (clear ?l))
    :effect (and (hands-empty) (box-at ?b ?l) (on ?b ?l) (clear ?b)
                 (not (holding ?b)) (not (clear ?l)))
  )

  (:action unstack
    :parameters (?b - box ?under - box ?l - location)
    :precondition (and (robot-at ?l) (hands-empty) (box-at ?b ?l) (on ?b ?under) (clear ?b))
    :effect (and (holding ?b) (clear ?under)
                 (not (hands-empty)) (not (box-at ?b ?l)) (not (on ?b ?under)) (not (clear ?b)))
  )

  (:action stack
    :parameters (?b - box ?under - box ?l - location)
    :precondition (and (robot-at ?l) (holding ?b) (box-at ?under ?l) (clear ?under)
                       (not (forbidden-stack ?b ?under)))
    :effect (and (hands-empty) (box-at ?b ?l) (on ?b ?under) (clear ?b)
                 (not (holding ?b)) (not (clear ?under)))
  )
)
`
